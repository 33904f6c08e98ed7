package emit

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	return rows
}

func sampleRecord() ProposalRecord {
	usd := 36144.58
	inr := int64(3000000)
	return ProposalRecord{
		Title:         "Evening Schools",
		Organization:  "Vidya Trust",
		Year:          2023,
		FundingSource: "Asha",
		Currency:      "INR",
		AmountUSD:     &usd,
		AmountINR:     &inr,
		Link:          "https://ashanet.org/project/?pid=42",
		Themes:        "education",
		Geography:     "Pune, Maharashtra",
		Notes:         "Status: Active",
	}
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	if err := WriteCSV(path, []ProposalRecord{sampleRecord()}); err != nil {
		t.Fatal(err)
	}

	rows := readRows(t, path)
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want header + 1 record", len(rows))
	}
	if strings.Join(rows[0], ",") != strings.Join(Header, ",") {
		t.Fatalf("header = %v", rows[0])
	}
	rec := rows[1]
	if rec[0] != "Evening Schools" || rec[2] != "2023" || rec[5] != "36144.58" || rec[6] != "3000000" {
		t.Fatalf("record row = %v", rec)
	}
	if len(rec) != len(Header) {
		t.Fatalf("record has %d columns, header has %d", len(rec), len(Header))
	}
}

func TestWriteCSVEmptySetKeepsHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	if err := WriteCSV(path, nil); err != nil {
		t.Fatal(err)
	}
	rows := readRows(t, path)
	if len(rows) != 1 || strings.Join(rows[0], ",") != strings.Join(Header, ",") {
		t.Fatalf("empty run output = %v, want header only", rows)
	}
}

func TestWriteCSVUnknownFieldsBlank(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	rec := ProposalRecord{Title: "No Figures", Link: "https://x.org/a.pdf", Notes: "no_amount_found"}
	if err := WriteCSV(path, []ProposalRecord{rec}); err != nil {
		t.Fatal(err)
	}
	rows := readRows(t, path)
	row := rows[1]
	// year, amount_usd, amount_inr, duration_months render as empty cells.
	for _, i := range []int{2, 5, 6, 11} {
		if row[i] != "" {
			t.Fatalf("column %s = %q, want empty", Header[i], row[i])
		}
	}
}

type fakeUploader struct {
	calls int
	err   error
}

func (f *fakeUploader) Upload(_ context.Context, path, folderID string) (*UploadInfo, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &UploadInfo{ID: "remote-1", Link: "https://drive.example/remote-1"}, nil
}

func TestEmitWithUpload(t *testing.T) {
	up := &fakeUploader{}
	res, err := Emit(context.Background(), t.TempDir(), "proposals.csv", []ProposalRecord{sampleRecord()}, up, "folder-9")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Uploaded || res.RemoteID != "remote-1" || res.RemoteLink != "https://drive.example/remote-1" {
		t.Fatalf("result = %+v", res)
	}
	if up.calls != 1 {
		t.Fatalf("upload called %d times, want 1", up.calls)
	}
	if _, err := os.Stat(res.CSVPath); err != nil {
		t.Fatalf("local file missing: %v", err)
	}
}

func TestEmitUploadFailureKeepsLocalFile(t *testing.T) {
	up := &fakeUploader{err: errors.New("storage unavailable")}
	res, err := Emit(context.Background(), t.TempDir(), "proposals.csv", nil, up, "folder-9")
	if err != nil {
		t.Fatal(err)
	}
	if res.Uploaded {
		t.Fatal("failed upload reported as uploaded")
	}
	if _, err := os.Stat(res.CSVPath); err != nil {
		t.Fatalf("local file missing after failed upload: %v", err)
	}
}

func TestEmitSkipsUploadWithoutFolder(t *testing.T) {
	up := &fakeUploader{}
	res, err := Emit(context.Background(), t.TempDir(), "proposals.csv", nil, up, "")
	if err != nil {
		t.Fatal(err)
	}
	if up.calls != 0 {
		t.Fatal("upload attempted without a folder ID")
	}
	if res.Uploaded {
		t.Fatal("no-folder run reported as uploaded")
	}
}

func TestNoopUploader(t *testing.T) {
	res, err := Emit(context.Background(), t.TempDir(), "proposals.csv", nil, NoopUploader(), "folder")
	if err != nil {
		t.Fatal(err)
	}
	if res.Uploaded {
		t.Fatal("noop uploader reported an upload")
	}
}

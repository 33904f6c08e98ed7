// Package emit assembles the normalized output records of a run and writes
// them to a delimited file, optionally handing the file to a remote-storage
// collaborator.
package emit

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"

	"github.com/fundingbot/grantscope/internal/utils"
)

// ProposalRecord is one accepted funding item. Immutable once created;
// written exactly once to the output file.
type ProposalRecord struct {
	Title          string
	Organization   string
	Year           int // 0 = unknown
	FundingSource  string
	Currency       string
	AmountUSD      *float64
	AmountINR      *int64
	Link           string
	FilePath       string // empty for non-downloaded items
	Themes         string
	Geography      string
	DurationMonths *int
	Notes          string
}

// Header is the fixed output schema. Records are a fixed struct, so the
// header is identical whether or not any record was accepted.
var Header = []string{
	"title", "organization", "year", "funding_source", "currency",
	"amount_usd", "amount_inr", "link", "file_path", "themes",
	"geography", "duration_months", "notes",
}

func (r ProposalRecord) row() []string {
	year := ""
	if r.Year > 0 {
		year = strconv.Itoa(r.Year)
	}
	usd := ""
	if r.AmountUSD != nil {
		usd = strconv.FormatFloat(*r.AmountUSD, 'f', 2, 64)
	}
	inr := ""
	if r.AmountINR != nil {
		inr = strconv.FormatInt(*r.AmountINR, 10)
	}
	months := ""
	if r.DurationMonths != nil {
		months = strconv.Itoa(*r.DurationMonths)
	}
	return []string{
		r.Title, r.Organization, year, r.FundingSource, r.Currency,
		usd, inr, r.Link, r.FilePath, r.Themes,
		r.Geography, months, r.Notes,
	}
}

// RunResult is the sole product of a run. Never mutated after return.
type RunResult struct {
	CSVPath    string
	Records    []ProposalRecord
	Uploaded   bool
	RemoteID   string
	RemoteLink string
	FolderID   string
}

// WriteCSV writes the header row followed by one row per record, UTF-8.
// An empty record set still produces the header.
func WriteCSV(path string, records []ProposalRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(Header); err != nil {
		return err
	}
	for _, r := range records {
		if err := w.Write(r.row()); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// Emit writes the result file into outDir under filename and, when an
// uploader and folder are supplied, hands it to remote storage. Upload
// failures are logged and downgrade Uploaded; they never fail the run.
func Emit(ctx context.Context, outDir, filename string, records []ProposalRecord, up Uploader, folderID string) (*RunResult, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}
	csvPath := filepath.Join(outDir, filename)
	utils.Log.Infof("saving %d records to %s", len(records), csvPath)
	if err := WriteCSV(csvPath, records); err != nil {
		return nil, err
	}

	result := &RunResult{CSVPath: csvPath, Records: records, FolderID: folderID}
	if up != nil && folderID != "" {
		info, err := up.Upload(ctx, csvPath, folderID)
		if err != nil {
			utils.Log.Warnf("upload failed, keeping local file only: %v", err)
		} else if info != nil {
			result.Uploaded = true
			result.RemoteID = info.ID
			result.RemoteLink = info.Link
		}
	}
	return result, nil
}

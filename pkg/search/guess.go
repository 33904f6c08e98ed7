package search

import (
	"github.com/fundingbot/grantscope/internal/utils"
	"github.com/fundingbot/grantscope/pkg/whttp"
)

// probeExists is a seam so tests can run GuessDomain without the network.
var probeExists = func(c *whttp.Client, guess string) bool {
	return c.Head(guess)
}

// GuessDomain derives candidate hostnames from the organization name under
// common foundation patterns and probes each with a lightweight existence
// check. The first responding candidate wins; when nothing answers, the
// first pattern is returned anyway so callers always get a usable string.
func (pl *Pool) GuessDomain(name string) string {
	clean := utils.Slug(name, "foundation", "fund")
	if clean == "" {
		return ""
	}

	candidates := []string{
		clean + ".org",
		clean + "foundation.org",
		clean + "fund.org",
		"www." + clean + ".org",
		"www." + clean + "foundation.org",
	}

	for _, domain := range candidates {
		guess := "https://" + domain
		if probeExists(pl.client, guess) {
			utils.Log.Infof("domain guess responded: %s", guess)
			return guess
		}
	}

	utils.Log.Debug("no guessed domain responded, returning best guess")
	return "https://" + candidates[0]
}

package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"crop-stress-lab/internal/domain"
)

// ShortLen is the hash prefix length used in cache file names.
const ShortLen = 12

// ComputeExperimentHash computes a deterministic configuration hash using SHA256.
// Formula: SHA256(experiment.Canonical())
// Returns hex-encoded hash (64 characters).
func ComputeExperimentHash(exp domain.Experiment) string {
	hash := sha256.Sum256([]byte(exp.Canonical()))
	return hex.EncodeToString(hash[:])
}

// ComputeResponseHash hashes only the settings that shape the response field,
// so experiments that differ in trade settings share one detector output.
// Formula: SHA256(gcm|members|data_years|baseline_years|response_type|vars|response_years|window_len|growing_season|calendar)
func ComputeResponseHash(exp domain.Experiment) string {
	vars := make([]string, len(exp.Variables))
	for i, v := range exp.Variables {
		vars[i] = fmt.Sprintf("%s:%s:%g", v.Variable, v.Tail, v.Percentile)
	}
	// The product only matters through its growing-season calendar.
	calendar := "-"
	if exp.GrowingSeasonOnly || exp.ResponseType == domain.ResponseAnomalies {
		calendar = string(exp.Product)
	}
	data := fmt.Sprintf("%s|%d|%s|%s|%s|%s|%s|%d|%t|%s",
		exp.GCM,
		exp.Members,
		exp.DataYears,
		exp.BaselineYears,
		exp.ResponseType,
		strings.Join(vars, ","),
		exp.ResponseYears,
		exp.WindowLen,
		exp.GrowingSeasonOnly,
		calendar,
	)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// Short returns the cache-name prefix of a hash.
func Short(hash string) string {
	if len(hash) <= ShortLen {
		return hash
	}
	return hash[:ShortLen]
}

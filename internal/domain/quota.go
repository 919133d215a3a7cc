package domain

// QuotaInfo is the usage report returned to the caller. Usage counts only
// non-trashed files, so soft-deleting frees apparent quota immediately even
// though the blob survives until the retention sweep.
type QuotaInfo struct {
	TotalSpace     int64   `json:"total_space"`
	UsedSpace      int64   `json:"used_space"`
	AvailableSpace int64   `json:"available_space"`
	UsagePercent   float64 `json:"usage_percent"`
}

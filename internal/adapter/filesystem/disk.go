package filesystem

// DiskUsage describes the filesystem holding the download root
type DiskUsage struct {
	Total   uint64  `json:"total"`
	Used    uint64  `json:"used"`
	Free    uint64  `json:"free"`
	UsedPct float64 `json:"used_pct"`
}

func newDiskUsage(total, free uint64) *DiskUsage {
	if free > total {
		free = total
	}
	usage := &DiskUsage{Total: total, Used: total - free, Free: free}
	if total > 0 {
		usage.UsedPct = float64(usage.Used) / float64(total) * 100
	}
	return usage
}

package metrics

import "sort"

// StatusBucket is the count of non-success responses for a request/code pair.
// Code is the HTTP status, or "transport" when no response was received.
type StatusBucket struct {
	Request string
	Code    string
	Count   int
}

// FlattenStatusBuckets converts a nested request->status map into a sorted slice of StatusBucket rows.
// Rows are sorted by descending count, then by request/code for stability.
func FlattenStatusBuckets(buckets map[string]map[string]int) []StatusBucket {
	if len(buckets) == 0 {
		return nil
	}
	rows := make([]StatusBucket, 0)
	for request, codes := range buckets {
		for code, count := range codes {
			rows = append(rows, StatusBucket{Request: request, Code: code, Count: count})
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count == rows[j].Count {
			if rows[i].Request == rows[j].Request {
				return rows[i].Code < rows[j].Code
			}
			return rows[i].Request < rows[j].Request
		}
		return rows[i].Count > rows[j].Count
	})
	return rows
}

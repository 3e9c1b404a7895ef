// Package domain defines the core data types of the repair-intake bot:
// the persisted repair request and the processed-update bookkeeping row.
package domain

import (
	"strconv"
	"time"
)

// CSVHeader is the header row of the durable request store. Column order is
// part of the on-disk contract and must not change.
var CSVHeader = []string{
	"id",
	"requester_name",
	"phone",
	"device_type",
	"problem_description",
	"preferred_contact_time",
	"created_at",
}

// Request is a finalized repair request. The ID and CreatedAt are assigned by
// the store at the moment of successful confirmation, never by the caller.
type Request struct {
	ID            int64     `json:"id"`
	Name          string    `json:"requester_name"`
	Phone         string    `json:"phone"`
	DeviceType    string    `json:"device_type"`
	Problem       string    `json:"problem_description"`
	PreferredTime string    `json:"preferred_contact_time"`
	CreatedAt     time.Time `json:"created_at"`
}

// CSVRow renders the request as a store row matching CSVHeader.
func (r Request) CSVRow() []string {
	created := ""
	if !r.CreatedAt.IsZero() {
		created = r.CreatedAt.UTC().Format(time.RFC3339)
	}
	return []string{
		strconv.FormatInt(r.ID, 10),
		r.Name,
		r.Phone,
		r.DeviceType,
		r.Problem,
		r.PreferredTime,
		created,
	}
}

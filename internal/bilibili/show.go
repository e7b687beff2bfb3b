package bilibili

import (
	"bytes"
	"encoding/json"
)

// SeasonID tolerates the upstream API serving season ids as either JSON
// numbers or strings. Empty means missing.
type SeasonID string

func (s *SeasonID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = SeasonID(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = SeasonID(n.String())
	return nil
}

// NewEp carries the latest-episode fields, absent for some shows.
type NewEp struct {
	PubTime   string `json:"pub_time"`
	IndexShow string `json:"index_show"`
}

// Show is one followed show+season as served by the follow-list API.
type Show struct {
	Title       string   `json:"title"`
	SeasonID    SeasonID `json:"season_id"`
	SeasonTitle string   `json:"season_title"`

	// IsFinish is the upstream "finish" flag; non-zero means completed.
	IsFinish int `json:"is_finish"`

	// BroadcastIndex and RenewalTime are free-text schedules like
	// "每周四 20:00更新".
	BroadcastIndex string `json:"broadcast_index"`
	RenewalTime    string `json:"renewal_time"`

	// IndexShow is the show-level update status ("更新至第8话").
	IndexShow string `json:"index_show"`

	// Evaluate is the synopsis.
	Evaluate string `json:"evaluate"`

	NewEp *NewEp `json:"new_ep"`
}

// Finished reports whether the show has completed its run.
func (s Show) Finished() bool {
	return s.IsFinish != 0
}

// HasBroadcastInfo reports whether any schedule-bearing field is present.
func (s Show) HasBroadcastInfo() bool {
	if s.BroadcastIndex != "" || s.RenewalTime != "" {
		return true
	}
	return s.NewEp != nil && s.NewEp.PubTime != ""
}

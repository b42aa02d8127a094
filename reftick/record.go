package reftick

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/pkg/errors"
)

// Status is "ok" for a fully refined candidate.
func (c Candidate) Status() string {
	switch {
	case c.Err == nil:
		return "ok"
	case errors.Is(c.Err, ErrInsufficientSearchRange):
		return "insufficient search range"
	}
	return c.Err.Error()
}

func (c Candidate) String() string {
	return fmt.Sprintf("{Start:%d Edge:%d Score:%.6f SamplesPerFrame:%d Status:%s}",
		c.Start, c.Edge, c.Score, c.SamplesPerFrame, c.Status(),
	)
}

func (c Candidate) Header() []string {
	return []string{"start", "edge", "score", "samples_per_frame", "status"}
}

func (c Candidate) Record() []string {
	return []string{
		strconv.Itoa(c.Start),
		strconv.Itoa(c.Edge),
		strconv.FormatFloat(c.Score, 'f', -1, 64),
		strconv.Itoa(c.SamplesPerFrame),
		c.Status(),
	}
}

func (c Candidate) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Start           int     `json:"start"`
		Edge            int     `json:"edge"`
		Score           float64 `json:"score"`
		SamplesPerFrame int     `json:"samples_per_frame"`
		Status          string  `json:"status"`
	}{c.Start, c.Edge, c.Score, c.SamplesPerFrame, c.Status()})
}

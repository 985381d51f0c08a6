package handlers

import (
	"fmt"
	"time"
)

// History prints the most recent deployment runs.
func History(limit int) error {
	s, err := openStore(defaultStorePath)
	if err != nil {
		return err
	}
	recs, err := s.History(limit)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Println("No deployments recorded.")
		return nil
	}
	for _, rec := range recs {
		fmt.Printf("%s node=%s created=%d errors=%d (%s)\n",
			rec.StartedAt.Format("2006-01-02 15:04"),
			rec.Node,
			rec.Succeeded,
			rec.Failed,
			rec.FinishedAt.Sub(rec.StartedAt).Round(time.Second),
		)
	}
	return nil
}

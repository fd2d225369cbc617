package store

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/roach88/dcmindex/internal/match"
	"github.com/roach88/dcmindex/internal/schema"
)

// RetrieveRequest is a retrieve request; see match.RetrieveRequest.
type RetrieveRequest = match.RetrieveRequest

// Location is a stored object matched by a retrieve.
type Location struct {
	// Key is the primary key of the leaf row.
	Key               string
	Path              string
	SOPInstanceUID    string
	SOPClassUID       string
	TransferSyntaxUID string
	Reference         FileReference
}

// Retrieve resolves exact hierarchical keys to the stored objects below
// them, ordered by leaf primary key.
func (s *Store) Retrieve(ctx context.Context, req RetrieveRequest) (locs []Location, err error) {
	ctx, finish := s.telemetry.Start(ctx, "retrieve", attribute.String("level", string(req.Level)))
	defer func() { finish(err) }()

	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen("retrieve"); err != nil {
		return nil, err
	}

	plan, err := s.planner(s.catalog).PlanRetrieve(req)
	if err != nil {
		return nil, planError(err)
	}
	columns := append([]string{schema.ColPrimaryKey}, plan.Columns...)
	rows, err := s.selectRows(ctx, s.db, plan.Query, columns)
	if err != nil {
		return nil, unableToProcess("retrieve", err)
	}

	locs = make([]Location, 0, len(rows))
	for _, r := range rows {
		locs = append(locs, Location{
			Key:               r.String(schema.ColPrimaryKey),
			Path:              r.String(schema.ColFile),
			SOPInstanceUID:    r.String("SOPINSTANCEUID"),
			SOPClassUID:       r.String("SOPCLASSUID"),
			TransferSyntaxUID: r.String("TRANSFERSYNTAXUID"),
			Reference:         FileReference(r.String(schema.ColFileReferenceType)),
		})
	}
	return locs, nil
}

package graph

import "context"

// ManufacturerStats counts the cars linked to one manufacturer.
type ManufacturerStats struct {
	Name string `json:"name"`
	Cars int64  `json:"cars"`
}

// Stats summarizes what the graph holds.
type Stats struct {
	Nodes         map[string]int64    `json:"nodes"`
	Relationships map[string]int64    `json:"relationships"`
	Manufacturers []ManufacturerStats `json:"manufacturers"`
}

// Stats returns node and edge counts plus cars per manufacturer.
func (g *Graph) Stats(ctx context.Context) (Stats, error) {
	nodes, err := g.counts(ctx, `MATCH (n) RETURN labels(n)[0] AS type, count(*) AS count`)
	if err != nil {
		return Stats{}, err
	}
	rels, err := g.counts(ctx, `MATCH ()-[r]->() RETURN type(r) AS type, count(*) AS count`)
	if err != nil {
		return Stats{}, err
	}
	mfrs, err := g.carsPerManufacturer(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{Nodes: nodes, Relationships: rels, Manufacturers: mfrs}, nil
}

func (g *Graph) counts(ctx context.Context, cypher string) (map[string]int64, error) {
	sess := g.sessions(ctx)
	defer sess.Close(ctx)

	result, err := sess.Run(ctx, cypher, nil)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64)
	for result.Next(ctx) {
		rec := result.Record()
		typ, _ := rec.Get("type")
		cnt, _ := rec.Get("count")
		if t, ok := typ.(string); ok {
			if c, ok := cnt.(int64); ok {
				counts[t] = c
			}
		}
	}
	return counts, nil
}

func (g *Graph) carsPerManufacturer(ctx context.Context) ([]ManufacturerStats, error) {
	sess := g.sessions(ctx)
	defer sess.Close(ctx)

	cypher := `MATCH (m:Manufacturer)
		OPTIONAL MATCH (c:Car)-[:MADE_BY]->(m)
		RETURN m.name AS name, count(c) AS cars
		ORDER BY cars DESC, name`
	result, err := sess.Run(ctx, cypher, nil)
	if err != nil {
		return nil, err
	}
	stats := []ManufacturerStats{}
	for result.Next(ctx) {
		rec := result.Record()
		name, _ := rec.Get("name")
		cars, _ := rec.Get("cars")
		s := ManufacturerStats{}
		if n, ok := name.(string); ok {
			s.Name = n
		}
		if c, ok := cars.(int64); ok {
			s.Cars = c
		}
		stats = append(stats, s)
	}
	return stats, nil
}

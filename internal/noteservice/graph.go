package noteservice

import (
	"context"

	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/storage"
)

// GlobalGraph returns every note as a node and every stored link as an edge.
func (s *Service) GlobalGraph(_ context.Context) (*models.Graph, error) {
	metas, err := s.store.List("")
	if err != nil {
		return nil, err
	}
	links, err := s.db.AllLinks()
	if err != nil {
		return nil, err
	}
	g := &models.Graph{Nodes: []models.GraphNode{}, Edges: []models.GraphEdge{}}
	for _, m := range metas {
		g.Nodes = append(g.Nodes, models.GraphNode{ID: m.Path, Title: m.Title})
	}
	for _, l := range links {
		g.Edges = append(g.Edges, models.GraphEdge{Source: l.From, Target: l.To})
	}
	return g, nil
}

// LocalGraph returns path and its direct neighbours in either direction.
func (s *Service) LocalGraph(_ context.Context, path string) (*models.Graph, error) {
	abs, err := s.store.Abs(path)
	if err != nil {
		return nil, err
	}
	links, err := s.db.LinksForNote(abs)
	if err != nil {
		return nil, err
	}
	g := &models.Graph{
		Nodes: []models.GraphNode{{ID: abs, Title: storage.Title(abs)}},
		Edges: []models.GraphEdge{},
	}
	seen := map[string]struct{}{abs: {}}
	for _, l := range links {
		g.Edges = append(g.Edges, models.GraphEdge{Source: l.From, Target: l.To})
		for _, p := range []string{l.From, l.To} {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			g.Nodes = append(g.Nodes, models.GraphNode{ID: p, Title: storage.Title(p)})
		}
	}
	return g, nil
}

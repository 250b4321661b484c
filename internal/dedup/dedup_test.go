package dedup

import "testing"

func TestFind_ExcludesLinkedMembers(t *testing.T) {
	items := []Item{
		{ID: "o5a", Description: "Call Alice"},
		{ID: "o5b", Description: "call alice"},
		{ID: "o5c", Description: "Call   ALICE"},
	}
	linked := map[string]struct{}{"o5a": {}}

	clusters := Find(items, linked)
	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d: %+v", len(clusters), clusters)
	}
	if len(clusters[0].Members) != 2 {
		t.Fatalf("expected 2 members excluding the linked one, got %+v", clusters[0].Members)
	}
	for _, m := range clusters[0].Members {
		if m.ID == "o5a" {
			t.Fatalf("linked member o5a must never appear in a cluster")
		}
	}
}

func TestFind_SingleItemIsNotACluster(t *testing.T) {
	items := []Item{{ID: "o1", Description: "Unique task"}}
	clusters := Find(items, nil)
	if len(clusters) != 0 {
		t.Fatalf("expected no clusters for a singleton, got %+v", clusters)
	}
}

func TestApply_DeletesNonKeptMembers(t *testing.T) {
	clusters := []Cluster{
		{
			ID: "call alice",
			Members: []Item{
				{ID: "o5b"},
				{ID: "o5c"},
			},
		},
	}
	decisions := Disposition{
		"call alice": {"o5b": {}},
	}
	deletes := Apply(clusters, decisions)
	if len(deletes) != 1 || deletes[0] != "o5c" {
		t.Fatalf("expected o5c deleted, got %+v", deletes)
	}
}

func TestApply_SkipsUndecidedClusters(t *testing.T) {
	clusters := []Cluster{
		{ID: "x", Members: []Item{{ID: "a"}, {ID: "b"}}},
	}
	deletes := Apply(clusters, Disposition{})
	if len(deletes) != 0 {
		t.Fatalf("expected no deletes for undecided cluster, got %+v", deletes)
	}
}

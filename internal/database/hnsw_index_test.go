package database

import "testing"

func TestIdentityIndex_Empty(t *testing.T) {
	idx := BuildIdentityIndex(nil)
	if got := idx.Search([]float32{1, 2}, 5); got != nil {
		t.Errorf("expected no candidates, got %v", got)
	}
	if idx.Count() != 0 {
		t.Errorf("expected count 0, got %d", idx.Count())
	}
}

func TestIdentityIndex_FindsNearest(t *testing.T) {
	embeddings := [][]float32{
		{0, 0},
		{10, 10},
		{20, 20},
		{30, 30},
	}
	idx := BuildIdentityIndex(embeddings)

	got := idx.Search([]float32{19, 19}, 2)
	if len(got) == 0 {
		t.Fatal("expected candidates")
	}
	found := false
	for _, pos := range got {
		if pos == 2 {
			found = true
		}
	}
	if !found {
		t.Errorf("expected position 2 among candidates, got %v", got)
	}
}

func TestIdentityIndex_KClampedToCount(t *testing.T) {
	idx := BuildIdentityIndex([][]float32{{1}, {2}})
	if got := idx.Search([]float32{1.5}, 50); len(got) > 2 {
		t.Errorf("expected at most 2 candidates, got %d", len(got))
	}
}

func TestSnapshot_IndexBuiltOnce(t *testing.T) {
	snap, _ := NewSnapshot([]string{"a"}, [][]float32{{1, 2}})
	if snap.Index() != snap.Index() {
		t.Error("expected the same index on repeated calls")
	}
}

package identity

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

// mockRepo mimics the Postgres repository: case-insensitive lookup, a
// monotonic counter, and a uniqueness check on insert.
type mockRepo struct {
	mappings []Mapping
	seq      int64

	insertConflictOnce bool // simulate losing a race on first insert
	conflictWinner     *Mapping
}

func (m *mockRepo) FindByName(ctx context.Context, name string) (*Mapping, error) {
	for i := range m.mappings {
		if strings.EqualFold(m.mappings[i].PatientName, name) {
			return &m.mappings[i], nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) NextSequence(ctx context.Context) (int64, error) {
	m.seq++
	return m.seq, nil
}

func (m *mockRepo) Insert(ctx context.Context, mp *Mapping) error {
	if m.insertConflictOnce {
		m.insertConflictOnce = false
		if m.conflictWinner != nil {
			m.mappings = append(m.mappings, *m.conflictWinner)
		}
		return ErrNameTaken
	}
	m.mappings = append(m.mappings, *mp)
	return nil
}

func newResolver(repo Repository) *Resolver {
	return NewResolver(repo, zerolog.Nop())
}

func TestResolveAssignsSequentialIDs(t *testing.T) {
	r := newResolver(&mockRepo{})
	ctx := context.Background()

	id1, err := r.Resolve(ctx, "John Doe")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if id1 != "P0001" {
		t.Errorf("first id = %q, want P0001", id1)
	}

	id2, err := r.Resolve(ctx, "Jane Smith")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if id2 != "P0002" {
		t.Errorf("second id = %q, want P0002", id2)
	}
}

func TestResolveIsCaseInsensitive(t *testing.T) {
	r := newResolver(&mockRepo{})
	ctx := context.Background()

	id1, _ := r.Resolve(ctx, "John Doe")
	id2, err := r.Resolve(ctx, "john doe")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if id2 != id1 {
		t.Errorf("case variants diverged: %q vs %q", id1, id2)
	}
	id3, _ := r.Resolve(ctx, "JOHN DOE")
	if id3 != id1 {
		t.Errorf("upper-case variant diverged: %q vs %q", id1, id3)
	}
}

func TestResolveRejectsEmptyName(t *testing.T) {
	r := newResolver(&mockRepo{})
	for _, name := range []string{"", "   ", "\t\n"} {
		if _, err := r.Resolve(context.Background(), name); err != ErrEmptyName {
			t.Errorf("Resolve(%q) err = %v, want ErrEmptyName", name, err)
		}
	}
}

func TestResolveSurvivesInsertRace(t *testing.T) {
	repo := &mockRepo{
		insertConflictOnce: true,
		conflictWinner:     &Mapping{PatientID: "P0001", PatientName: "John Doe"},
	}
	r := newResolver(repo)

	id, err := r.Resolve(context.Background(), "john doe")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if id != "P0001" {
		t.Errorf("id after conflict = %q, want winner's P0001", id)
	}
}

func TestFormatPatientID(t *testing.T) {
	cases := []struct {
		seq  int64
		want string
	}{
		{1, "P0001"},
		{42, "P0042"},
		{9999, "P9999"},
		{10000, "P10000"},
	}
	for _, c := range cases {
		if got := FormatPatientID(c.seq); got != c.want {
			t.Errorf("FormatPatientID(%d) = %q, want %q", c.seq, got, c.want)
		}
	}
}

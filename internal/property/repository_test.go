package property

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/evcraddock/house-market/internal/db"
	"github.com/evcraddock/house-market/internal/errs"
)

func TestInsertAndGetByID(t *testing.T) {
	repo := testRepo(t)

	p := &Property{
		ID:          "p1",
		OwnerID:     "owner-1",
		Title:       "Craftsman bungalow",
		Price:       250000,
		Address:     "123 Main St",
		City:        "Austin",
		Bedrooms:    3,
		Bathrooms:   2.5,
		Status:      StatusAvailable,
		ImageKeys:   []string{"properties/p1/0-front.jpg", "properties/p1/1-back.jpg"},
		ListerName:  "Lee",
		ListerEmail: "lee@example.com",
	}

	saved, err := repo.Insert(p)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if saved.Title != "Craftsman bungalow" {
		t.Errorf("title = %q", saved.Title)
	}
	if saved.Bathrooms != 2.5 {
		t.Errorf("bathrooms = %v, want 2.5", saved.Bathrooms)
	}
	if saved.Views != 0 {
		t.Errorf("views = %d, want 0", saved.Views)
	}
	if len(saved.ImageKeys) != 2 || saved.ImageKeys[0] != "properties/p1/0-front.jpg" || saved.ImageKeys[1] != "properties/p1/1-back.jpg" {
		t.Errorf("image keys = %v", saved.ImageKeys)
	}
	if saved.ListerEmail != "lee@example.com" {
		t.Errorf("lister email = %q", saved.ListerEmail)
	}
}

func TestInsertNoImages(t *testing.T) {
	repo := testRepo(t)

	saved, err := repo.Insert(newProperty("p1", "owner-1", "Lot", 10))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if saved.ImageKeys == nil || len(saved.ImageKeys) != 0 {
		t.Errorf("image keys = %#v, want empty non-nil", saved.ImageKeys)
	}
}

func TestInsertDuplicateID(t *testing.T) {
	repo := testRepo(t)

	if _, err := repo.Insert(newProperty("p1", "o", "A", 1)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := repo.Insert(newProperty("p1", "o", "B", 1)); !errors.Is(err, errs.ErrAlreadyExists) {
		t.Errorf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	repo := testRepo(t)

	if _, err := repo.GetByID("missing"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListFilters(t *testing.T) {
	repo := testRepo(t)

	seed := []*Property{
		{ID: "a", OwnerID: "o1", Title: "Lake house", Address: "1 Shore Rd", City: "Austin", Price: 500000, Bedrooms: 4, Status: StatusAvailable},
		{ID: "b", OwnerID: "o1", Title: "Condo", Address: "2 Main St", City: "Dallas", Price: 200000, Bedrooms: 2, Status: StatusPending},
		{ID: "c", OwnerID: "o2", Title: "Ranch", Address: "3 Lake Ln", City: "austin", Price: 300000, Bedrooms: 3, Status: StatusSold},
	}
	for _, p := range seed {
		if _, err := repo.Insert(p); err != nil {
			t.Fatalf("insert %s: %v", p.ID, err)
		}
	}

	tests := []struct {
		name string
		opts ListOptions
		want []string
	}{
		{"all", ListOptions{}, []string{"a", "b", "c"}},
		{"owner", ListOptions{OwnerID: "o1"}, []string{"a", "b"}},
		{"status", ListOptions{Status: StatusPending}, []string{"b"}},
		{"city case-insensitive", ListOptions{City: "AUSTIN"}, []string{"a", "c"}},
		{"price range", ListOptions{MinPrice: 250000, MaxPrice: 400000}, []string{"c"}},
		{"min beds", ListOptions{MinBedrooms: 3}, []string{"a", "c"}},
		{"search title or address", ListOptions{Search: "lake"}, []string{"a", "c"}},
		{"no match", ListOptions{City: "Houston"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.List(tt.opts)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if got == nil {
				t.Fatal("list returned nil slice")
			}
			if !sameIDs(got, tt.want) {
				t.Errorf("ids = %v, want %v", ids(got), tt.want)
			}
		})
	}
}

func TestListSearchTreatsWildcardsLiterally(t *testing.T) {
	repo := testRepo(t)

	seed := []*Property{
		{ID: "pct", OwnerID: "o", Title: "100% owner financed", Address: "1 Elm St", Status: StatusAvailable},
		{ID: "under", OwnerID: "o", Title: "Loft", Address: "2 Oak_Ave", Status: StatusAvailable},
		{ID: "plain", OwnerID: "o", Title: "Bungalow", Address: "3 Pine Rd", Status: StatusAvailable},
	}
	for _, p := range seed {
		if _, err := repo.Insert(p); err != nil {
			t.Fatalf("insert %s: %v", p.ID, err)
		}
	}

	tests := []struct {
		search string
		want   []string
	}{
		{"%", []string{"pct"}},
		{"_", []string{"under"}},
		{"Oak_", []string{"under"}},
		{`\`, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.search, func(t *testing.T) {
			got, err := repo.List(ListOptions{Search: tt.search})
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if !sameIDs(got, tt.want) {
				t.Errorf("ids = %v, want %v", ids(got), tt.want)
			}
		})
	}
}

func TestListPagination(t *testing.T) {
	repo := testRepo(t)
	for i := 0; i < 5; i++ {
		if _, err := repo.Insert(newProperty(fmt.Sprintf("p%d", i), "o", "House", 1)); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	page1, err := repo.List(ListOptions{Limit: 2})
	if err != nil {
		t.Fatalf("page 1: %v", err)
	}
	page3, err := repo.List(ListOptions{Limit: 2, Offset: 4})
	if err != nil {
		t.Fatalf("page 3: %v", err)
	}
	if len(page1) != 2 || len(page3) != 1 {
		t.Errorf("page sizes = %d, %d; want 2, 1", len(page1), len(page3))
	}
}

func TestListByOwnerLoadsImages(t *testing.T) {
	repo := testRepo(t)

	p := newProperty("p1", "o1", "With photos", 1)
	p.ImageKeys = []string{"k0", "k1", "k2"}
	if _, err := repo.Insert(p); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := repo.Insert(newProperty("p2", "o1", "Without", 1)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := repo.ListByOwner("o1")
	if err != nil {
		t.Fatalf("list by owner: %v", err)
	}
	for _, p := range got {
		switch p.ID {
		case "p1":
			if len(p.ImageKeys) != 3 || p.ImageKeys[2] != "k2" {
				t.Errorf("p1 images = %v", p.ImageKeys)
			}
		case "p2":
			if len(p.ImageKeys) != 0 {
				t.Errorf("p2 images = %v", p.ImageKeys)
			}
		}
	}
}

func TestUpdate(t *testing.T) {
	repo := testRepo(t)

	saved, err := repo.Insert(newProperty("p1", "o1", "Before", 100))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	saved.Title = "After"
	saved.Status = StatusSold
	if err := repo.Update(saved); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := repo.GetByID("p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "After" || got.Status != StatusSold {
		t.Errorf("got %q / %q", got.Title, got.Status)
	}

	if err := repo.Update(&Property{ID: "missing", Status: StatusAvailable}); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("update missing err = %v, want ErrNotFound", err)
	}
}

func TestIncrementViews(t *testing.T) {
	repo := testRepo(t)

	if _, err := repo.Insert(newProperty("p1", "o1", "House", 1)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := repo.IncrementViews("p1"); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}

	got, err := repo.GetByID("p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Views != 3 {
		t.Errorf("views = %d, want 3", got.Views)
	}

	if err := repo.IncrementViews("missing"); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	repo := testRepo(t)

	p := newProperty("p1", "o1", "House", 1)
	p.ImageKeys = []string{"k0"}
	if _, err := repo.Insert(p); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := repo.Delete("p1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetByID("p1"); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("get after delete err = %v", err)
	}

	var n int
	if err := repo.db.QueryRow("SELECT COUNT(*) FROM property_images").Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("image rows = %d, want 0 after cascade", n)
	}

	if err := repo.Delete("p1"); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func newProperty(id, owner, title string, price int64) *Property {
	return &Property{ID: id, OwnerID: owner, Title: title, Address: "1 Main St", Price: price, Status: StatusAvailable}
}

func ids(ps []*Property) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}

func sameIDs(ps []*Property, want []string) bool {
	if len(ps) != len(want) {
		return false
	}
	seen := map[string]bool{}
	for _, p := range ps {
		seen[p.ID] = true
	}
	for _, id := range want {
		if !seen[id] {
			return false
		}
	}
	return true
}

func testRepo(t *testing.T) *Repository {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	d, err := db.Open(path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if err := d.Close(); err != nil {
			t.Errorf("close db: %v", err)
		}
	})
	return NewRepository(d)
}

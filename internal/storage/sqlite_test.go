package storage

import (
	"errors"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func intp(v int) *int { return &v }

func TestCreateAndGetBook(t *testing.T) {
	s := openTestStore(t)

	b, err := s.CreateBook("The Go Programming Language", "Donovan & Kernighan", intp(2015))
	if err != nil {
		t.Fatalf("CreateBook: %v", err)
	}
	if b.ID == 0 {
		t.Fatal("expected assigned ID")
	}

	got, err := s.GetBook(b.ID)
	if err != nil {
		t.Fatalf("GetBook(%d): %v", b.ID, err)
	}
	if got.Title != b.Title || got.Author != b.Author {
		t.Errorf("got %+v, want %+v", got, b)
	}
	if got.Year == nil || *got.Year != 2015 {
		t.Errorf("Year = %v, want 2015", got.Year)
	}
}

func TestCreateBook_UniqueIDs(t *testing.T) {
	s := openTestStore(t)

	seen := make(map[int64]bool)
	for i := 0; i < 5; i++ {
		b, err := s.CreateBook("T", "A", nil)
		if err != nil {
			t.Fatalf("CreateBook: %v", err)
		}
		if seen[b.ID] {
			t.Fatalf("duplicate ID %d", b.ID)
		}
		seen[b.ID] = true
	}
}

func TestGetBook_NotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetBook(12345)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListBooks(t *testing.T) {
	s := openTestStore(t)

	books, err := s.ListBooks()
	if err != nil {
		t.Fatalf("ListBooks: %v", err)
	}
	if len(books) != 0 {
		t.Fatalf("expected empty library, got %d books", len(books))
	}

	s.CreateBook("A", "X", nil)
	s.CreateBook("B", "Y", intp(1999))

	books, err = s.ListBooks()
	if err != nil {
		t.Fatalf("ListBooks: %v", err)
	}
	if len(books) != 2 {
		t.Fatalf("len = %d, want 2", len(books))
	}
	if books[0].Title != "A" || books[1].Title != "B" {
		t.Errorf("unexpected order: %+v", books)
	}
}

func TestUpdateBook_FullReplace(t *testing.T) {
	s := openTestStore(t)

	b, err := s.CreateBook("Old", "Author", intp(2001))
	if err != nil {
		t.Fatalf("CreateBook: %v", err)
	}

	// Updating without a year must clear the stored year.
	updated, err := s.UpdateBook(b.ID, "New", "Author", nil)
	if err != nil {
		t.Fatalf("UpdateBook: %v", err)
	}
	if updated.Title != "New" {
		t.Errorf("Title = %q, want %q", updated.Title, "New")
	}

	got, err := s.GetBook(b.ID)
	if err != nil {
		t.Fatalf("GetBook: %v", err)
	}
	if got.Title != "New" {
		t.Errorf("Title = %q, want %q", got.Title, "New")
	}
	if got.Year != nil {
		t.Errorf("Year = %v, want nil after full replace", *got.Year)
	}
}

func TestUpdateBook_NotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.UpdateBook(999, "T", "A", nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteBook(t *testing.T) {
	s := openTestStore(t)

	b, err := s.CreateBook("Doomed", "Author", nil)
	if err != nil {
		t.Fatalf("CreateBook: %v", err)
	}

	deleted, err := s.DeleteBook(b.ID)
	if err != nil {
		t.Fatalf("DeleteBook: %v", err)
	}
	if deleted.Title != "Doomed" {
		t.Errorf("deleted.Title = %q, want %q", deleted.Title, "Doomed")
	}

	if _, err := s.GetBook(b.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetBook after delete: err = %v, want ErrNotFound", err)
	}

	if _, err := s.DeleteBook(b.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second DeleteBook: err = %v, want ErrNotFound", err)
	}
}

func TestMigrationsApplied(t *testing.T) {
	s := openTestStore(t)

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&count); err != nil {
		t.Fatalf("querying schema_version: %v", err)
	}
	if count == 0 {
		t.Fatal("no migrations recorded")
	}
}

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/libris/internal/storage"
)

type bookRequest struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Year   *int   `json:"year"`
}

// validate enforces the create/update contract: title and author are
// required and must not be blank. Year stays optional.
func (b bookRequest) validate() (string, bool) {
	if strings.TrimSpace(b.Title) == "" {
		return "title is required", false
	}
	if strings.TrimSpace(b.Author) == "" {
		return "author is required", false
	}
	return "", true
}

func handleListBooks(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		books, err := deps.Store.ListBooks()
		if err != nil {
			apiError(w, http.StatusInternalServerError, "failed to list books")
			return
		}
		if books == nil {
			books = []storage.Book{}
		}
		writeJSON(w, http.StatusOK, books)
	}
}

func handleGetBook(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := bookID(w, r)
		if !ok {
			return
		}

		book, err := deps.Store.GetBook(id)
		if errors.Is(err, storage.ErrNotFound) {
			apiError(w, http.StatusNotFound, "book not found")
			return
		}
		if err != nil {
			apiError(w, http.StatusInternalServerError, "failed to get book")
			return
		}
		writeJSON(w, http.StatusOK, book)
	}
}

func handleCreateBook(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req bookRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if msg, ok := req.validate(); !ok {
			apiError(w, http.StatusBadRequest, "%s", msg)
			return
		}

		book, err := deps.Store.CreateBook(req.Title, req.Author, req.Year)
		if err != nil {
			apiError(w, http.StatusInternalServerError, "failed to create book")
			return
		}
		writeJSON(w, http.StatusCreated, book)
	}
}

func handleUpdateBook(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := bookID(w, r)
		if !ok {
			return
		}

		var req bookRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if msg, ok := req.validate(); !ok {
			apiError(w, http.StatusBadRequest, "%s", msg)
			return
		}

		// Full replace: an omitted year clears the stored one.
		book, err := deps.Store.UpdateBook(id, req.Title, req.Author, req.Year)
		if errors.Is(err, storage.ErrNotFound) {
			apiError(w, http.StatusNotFound, "book not found")
			return
		}
		if err != nil {
			apiError(w, http.StatusInternalServerError, "failed to update book")
			return
		}
		writeJSON(w, http.StatusOK, book)
	}
}

func handleDeleteBook(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := bookID(w, r)
		if !ok {
			return
		}

		book, err := deps.Store.DeleteBook(id)
		if errors.Is(err, storage.ErrNotFound) {
			apiError(w, http.StatusNotFound, "book not found")
			return
		}
		if err != nil {
			apiError(w, http.StatusInternalServerError, "failed to delete book")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"message": fmt.Sprintf("Book %q deleted successfully", book.Title),
		})
	}
}

// bookID parses the {id} route parameter. A non-numeric id cannot name a
// record, so it is reported as not found rather than a bad request.
func bookID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		apiError(w, http.StatusNotFound, "book not found")
		return 0, false
	}
	return id, true
}

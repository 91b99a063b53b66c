package fakeapi

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/and161185/sublease/internal/model"
)

// AddListing stores a listing owned by ownerID and returns it.
func (s *Server) AddListing(ownerID int64, c model.ListingCreate) model.Listing {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.create(ownerID, c)
}

// create stores a listing; callers hold s.mu.
func (s *Server) create(ownerID int64, c model.ListingCreate) model.Listing {
	owner := ""
	if a := s.users[ownerID]; a != nil {
		owner = a.Username
	}
	l := &model.Listing{
		ID:            s.id(),
		Title:         c.Title,
		Description:   c.Description,
		Price:         c.Price,
		Location:      c.Location,
		Bedrooms:      c.Bedrooms,
		Bathrooms:     c.Bathrooms,
		AvailableFrom: c.AvailableFrom,
		Amenities:     nonNil(c.Amenities),
		Images:        nonNil(c.Images),
		Status:        "active",
		CreatedAt:     s.now(),
		UserID:        ownerID,
		UserUsername:  owner,
	}
	s.listings[l.ID] = l
	return *l
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

// sorted returns listings by id; callers hold s.mu.
func (s *Server) sorted(keep func(*model.Listing) bool) []model.Listing {
	out := make([]model.Listing, 0, len(s.listings))
	for _, l := range s.listings {
		if keep(l) {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func pathID(r *http.Request, key string) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)[key], 10, 64)
	return id
}

func parseFilter(r *http.Request) (model.ListingFilter, bool) {
	q := r.URL.Query()
	f := model.ListingFilter{Limit: model.MaxPageSize, Search: q.Get("search"), Location: q.Get("location")}
	ok := true
	atoi := func(k string, dst *int) {
		if v := q.Get(k); v != "" {
			n, err := strconv.Atoi(v)
			ok = ok && err == nil
			*dst = n
		}
	}
	atof := func(k string) *float64 {
		if v := q.Get(k); v != "" {
			n, err := strconv.ParseFloat(v, 64)
			ok = ok && err == nil
			return &n
		}
		return nil
	}
	atoi("skip", &f.Skip)
	atoi("limit", &f.Limit)
	f.MinPrice, f.MaxPrice = atof("min_price"), atof("max_price")
	if q.Get("bedrooms") != "" {
		var b int
		atoi("bedrooms", &b)
		f.Bedrooms = &b
	}
	if f.Limit < 1 || f.Validate() != nil {
		ok = false
	}
	return f, ok
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	f, ok := parseFilter(r)
	if !ok {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid query parameters")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.serverSet {
		f = model.ListingFilter{Skip: f.Skip, Limit: f.Limit}
	}
	all := s.sorted(func(l *model.Listing) bool { return l.Status == "active" })
	writeJSON(w, http.StatusOK, f.Apply(all))
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listings[pathID(r, "id")]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Listing not found")
		return
	}
	l.Views++
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) handleMine(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.sorted(func(l *model.Listing) bool { return l.UserID == uid }))
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var c model.ListingCreate
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil || c.Title == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid listing")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusCreated, s.create(userID(r), c))
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var u model.ListingUpdate
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid listing")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listings[pathID(r, "id")]
	if !ok || l.UserID != userID(r) {
		writeDetail(w, http.StatusNotFound, "Listing not found or not authorized")
		return
	}
	if u.Title != nil {
		l.Title = *u.Title
	}
	if u.Description != nil {
		l.Description = *u.Description
	}
	if u.Price != nil {
		l.Price = *u.Price
	}
	if u.Location != nil {
		l.Location = *u.Location
	}
	if u.Bedrooms != nil {
		l.Bedrooms = *u.Bedrooms
	}
	if u.Bathrooms != nil {
		l.Bathrooms = *u.Bathrooms
	}
	if u.AvailableFrom != nil {
		l.AvailableFrom = *u.AvailableFrom
	}
	if u.Amenities != nil {
		l.Amenities = nonNil(*u.Amenities)
	}
	if u.Images != nil {
		l.Images = nonNil(*u.Images)
	}
	if u.Status != nil {
		l.Status = *u.Status
	}
	l.UpdatedAt = s.now()
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := pathID(r, "id")
	l, ok := s.listings[id]
	if !ok || l.UserID != userID(r) {
		writeDetail(w, http.StatusNotFound, "Listing not found or not authorized")
		return
	}
	delete(s.listings, id)
	for _, set := range s.likes {
		delete(set, id)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleInterested(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listings[pathID(r, "id")]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Listing not found")
		return
	}
	l.Interested++
	writeJSON(w, http.StatusOK, map[string]string{"message": "Listing marked as interested"})
}

func (s *Server) handleLike(w http.ResponseWriter, r *http.Request)   { s.setLike(w, r, true) }
func (s *Server) handleUnlike(w http.ResponseWriter, r *http.Request) { s.setLike(w, r, false) }

func (s *Server) setLike(w http.ResponseWriter, r *http.Request, liked bool) {
	uid, id := userID(r), pathID(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.listings[id]; !ok {
		writeDetail(w, http.StatusNotFound, "Listing not found")
		return
	}
	set := s.likes[uid]
	if set == nil {
		set = map[int64]bool{}
		s.likes[uid] = set
	}
	if liked {
		set[id] = true
		writeJSON(w, http.StatusOK, map[string]string{"message": "Listing liked"})
		return
	}
	delete(set, id)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Listing unliked"})
}

// Liked reports whether userID likes listingID on the server.
func (s *Server) Liked(userID, listingID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.likes[userID][listingID]
}

func (s *Server) handleLiked(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.likes[uid]
	writeJSON(w, http.StatusOK, s.sorted(func(l *model.Listing) bool { return set[l.ID] }))
}

package main

import (
	"encoding/base64"
	"flag"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/and161185/sublease/internal/model"
)

// isSet reports whether flag name was given explicitly.
func isSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

type filterArgs struct {
	search, location   string
	minPrice, maxPrice float64
	bedrooms           int
	skip, limit        int
}

func filterFlags(fs *flag.FlagSet) *filterArgs {
	f := &filterArgs{}
	fs.StringVar(&f.search, "search", "", "text in title, description or location")
	fs.StringVar(&f.location, "location", "", "exact location")
	fs.Float64Var(&f.minPrice, "min", 0, "minimum price")
	fs.Float64Var(&f.maxPrice, "max", 0, "maximum price")
	fs.IntVar(&f.bedrooms, "bedrooms", 0, "bedrooms")
	fs.IntVar(&f.skip, "skip", 0, "skip n results")
	fs.IntVar(&f.limit, "limit", 0, "page size (max 100)")
	return f
}

func (f *filterArgs) filter(fs *flag.FlagSet) (model.ListingFilter, error) {
	out := model.ListingFilter{Skip: f.skip, Limit: f.limit, Search: f.search, Location: f.location}
	if isSet(fs, "min") {
		out.MinPrice = model.Float(f.minPrice)
	}
	if isSet(fs, "max") {
		out.MaxPrice = model.Float(f.maxPrice)
	}
	if isSet(fs, "bedrooms") {
		out.Bedrooms = model.Int(f.bedrooms)
	}
	return out, out.Validate()
}

type listingArgs struct {
	title, desc, location string
	price, bathrooms      float64
	bedrooms              int
	from                  string
	amenities, images     string
}

func listingFlags(fs *flag.FlagSet) *listingArgs {
	l := &listingArgs{}
	fs.StringVar(&l.title, "title", "", "title")
	fs.StringVar(&l.desc, "desc", "", "description")
	fs.StringVar(&l.location, "location", "", "location")
	fs.Float64Var(&l.price, "price", 0, "monthly price")
	fs.IntVar(&l.bedrooms, "bedrooms", 0, "bedrooms")
	fs.Float64Var(&l.bathrooms, "bathrooms", 1, "bathrooms")
	fs.StringVar(&l.from, "from", "", "available from (YYYY-MM-DD)")
	fs.StringVar(&l.amenities, "amenities", "", "comma-separated amenities")
	fs.StringVar(&l.images, "images", "", "comma-separated image files")
	return l
}

func (l *listingArgs) create() (model.ListingCreate, error) {
	in := model.ListingCreate{
		Title:       strings.TrimSpace(l.title),
		Description: l.desc,
		Location:    strings.TrimSpace(l.location),
		Price:       l.price,
		Bedrooms:    l.bedrooms,
		Bathrooms:   l.bathrooms,
		Amenities:   splitList(l.amenities),
		Images:      []string{},
	}
	if l.from != "" {
		t, err := model.ParseTime(l.from)
		if err != nil {
			return in, usageError("bad -from: " + err.Error())
		}
		in.AvailableFrom = t
	}
	imgs, err := dataURIs(l.images)
	if err != nil {
		return in, err
	}
	if imgs != nil {
		in.Images = imgs
	}
	return in, in.Validate()
}

func (l *listingArgs) update(fs *flag.FlagSet) (model.ListingUpdate, error) {
	var in model.ListingUpdate
	if isSet(fs, "title") {
		in.Title = model.String(strings.TrimSpace(l.title))
	}
	if isSet(fs, "desc") {
		in.Description = model.String(l.desc)
	}
	if isSet(fs, "location") {
		in.Location = model.String(strings.TrimSpace(l.location))
	}
	if isSet(fs, "price") {
		in.Price = model.Float(l.price)
	}
	if isSet(fs, "bedrooms") {
		in.Bedrooms = model.Int(l.bedrooms)
	}
	if isSet(fs, "bathrooms") {
		in.Bathrooms = model.Float(l.bathrooms)
	}
	if isSet(fs, "from") {
		t, err := model.ParseTime(l.from)
		if err != nil {
			return in, usageError("bad -from: " + err.Error())
		}
		in.AvailableFrom = &t
	}
	if isSet(fs, "amenities") {
		a := splitList(l.amenities)
		in.Amenities = &a
	}
	if isSet(fs, "images") {
		imgs, err := dataURIs(l.images)
		if err != nil {
			return in, err
		}
		if imgs == nil {
			imgs = []string{}
		}
		in.Images = &imgs
	}
	return in, nil
}

func splitList(s string) []string {
	out := []string{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// dataURIs reads comma-separated image files (or URLs, passed through) into data URIs.
func dataURIs(list string) ([]string, error) {
	var out []string
	for _, p := range splitList(list) {
		if strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") || strings.HasPrefix(p, "data:") {
			out = append(out, p)
			continue
		}
		b, err := readAll(p)
		if err != nil {
			return nil, err
		}
		mt := mime.TypeByExtension(strings.ToLower(filepath.Ext(p)))
		if mt == "" {
			mt = http.DetectContentType(b)
		}
		if i := strings.IndexByte(mt, ';'); i >= 0 {
			mt = mt[:i]
		}
		out = append(out, "data:"+mt+";base64,"+base64.StdEncoding.EncodeToString(b))
	}
	return out, nil
}

// readAll reads a file, or stdin when p is "-".
func readAll(p string) ([]byte, error) {
	if p == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(p)
}

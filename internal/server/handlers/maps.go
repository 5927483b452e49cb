package handlers

import (
	"io/fs"
	"net/http"
)

// NewMapsHandler serves the published sets below root at prefix. Directory listings are
// disabled: a request for a directory is a 404.
func NewMapsHandler(prefix, root string) http.Handler {
	return http.StripPrefix(prefix, http.FileServer(noListingFS{http.Dir(root)}))
}

type noListingFS struct {
	fs http.FileSystem
}

func (n noListingFS) Open(name string) (http.File, error) {
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, fs.ErrNotExist
	}
	return f, nil
}

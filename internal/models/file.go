package models

// FileMeta is a listing entry for a post file, relative to the content root.
type FileMeta struct {
	Path string
}

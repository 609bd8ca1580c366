package chunk

import "github.com/fenilsonani/mediagit/internal/compress"

// smallCompressedTypes are already-compressed formats small enough that
// chunking them yields no reuse benefit (spec.md §4.4). Video is
// deliberately excluded: chunked video still benefits from partial reuse
// of shared intros/outros and from resumable transfer.
var smallCompressedTypes = map[compress.ObjectType]bool{
	compress.TypeJpeg: true,
	compress.TypePng:  true,
	compress.TypeGif:  true,
	compress.TypeWebp: true,
	compress.TypeAvif: true,
	compress.TypeHeic: true,
	compress.TypeMp3:  true,
	compress.TypeAac:  true,
	compress.TypeOgg:  true,
}

// ShouldChunk reports whether content of the given size and type should
// be content-defined-chunked, versus stored as a single loose object.
func ShouldChunk(size int64, t compress.ObjectType) bool {
	if size < MinSize {
		return false
	}
	if smallCompressedTypes[t] {
		return false
	}
	return true
}

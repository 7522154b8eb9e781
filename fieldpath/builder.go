package fieldpath

import (
	"strconv"
	"sync"
)

// Builder provides efficient path string building for field locations.
// It uses a byte buffer that grows as needed and is reused via sync.Pool.
type Builder struct {
	buf []byte
}

var builderPool = sync.Pool{
	New: func() any {
		return &Builder{
			buf: make([]byte, 0, 256),
		}
	},
}

// AcquireBuilder gets a Builder from the pool.
// Call Release() when done to return it to the pool.
func AcquireBuilder() *Builder {
	b := builderPool.Get().(*Builder)
	b.Reset()
	return b
}

// Release returns the Builder to the pool.
func (b *Builder) Release() {
	if b == nil {
		return
	}
	// Don't return oversized buffers to the pool
	if cap(b.buf) <= 4096 {
		builderPool.Put(b)
	}
}

// Reset clears the buffer without deallocating.
func (b *Builder) Reset() {
	b.buf = b.buf[:0]
}

// Len returns the current length of the path.
func (b *Builder) Len() int {
	return len(b.buf)
}

// WriteString appends a string to the path.
func (b *Builder) WriteString(s string) {
	b.buf = append(b.buf, s...)
}

// Append appends a segment with a leading dot if the buffer is not empty.
func (b *Builder) Append(part string) {
	if len(b.buf) > 0 {
		b.buf = append(b.buf, '.')
	}
	b.buf = append(b.buf, part...)
}

// AppendIndex appends an array index in brackets [n].
func (b *Builder) AppendIndex(index int) {
	b.buf = append(b.buf, '[')
	b.buf = strconv.AppendInt(b.buf, int64(index), 10)
	b.buf = append(b.buf, ']')
}

// AppendFilter appends a predicate filter [?(@.attr=='value')].
func (b *Builder) AppendFilter(attr, value string) {
	b.buf = append(b.buf, "[?(@."...)
	b.buf = append(b.buf, attr...)
	b.buf = append(b.buf, "=='"...)
	b.buf = append(b.buf, value...)
	b.buf = append(b.buf, "')]"...)
}

// String returns the built path as a string.
func (b *Builder) String() string {
	return string(b.buf)
}

// Build is a convenience function that builds a path using a callback.
// The Builder is automatically returned to the pool after the callback.
//
// Example:
//
//	path := fieldpath.Build(func(b *fieldpath.Builder) {
//	    b.Append("contained")
//	    b.AppendFilter("resourceType", "Patient")
//	    b.Append("name")
//	    b.AppendIndex(0)
//	    b.Append("given")
//	})
func Build(fn func(*Builder)) string {
	b := AcquireBuilder()
	defer b.Release()
	fn(b)
	return b.String()
}

// AppendArrayIndex appends an array index to a base path.
func AppendArrayIndex(base string, index int) string {
	b := AcquireBuilder()
	defer b.Release()
	b.WriteString(base)
	b.AppendIndex(index)
	return b.String()
}

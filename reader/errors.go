package reader

import "github.com/pkg/errors"

// ErrIncomplete is returned by Next when an entry's header or payload isn't
// fully available yet. The reader has rewound to the entry's start, so the
// caller may read more bytes into the underlying io.Reader and call Next
// again (§4.8) -- this is the normal condition when reading a still-growing
// file.
var ErrIncomplete = errors.New("reader: incomplete entry, retry after more input arrives")

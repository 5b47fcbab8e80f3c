// Package runtime embeds lisp_def.c, the fixed C header every Whisper
// translation unit includes, so ccrun can place it next to emitted source
// without the caller needing a copy on disk ahead of time.
package runtime

import _ "embed"

//go:embed lisp_def.c
var Header []byte

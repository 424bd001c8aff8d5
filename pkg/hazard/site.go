package hazard

import (
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

// Site is the source location that acquired a hazard reference.
type Site struct {
	File string
	Line int
	Func string
}

func (s *Site) String() string {
	if s == nil {
		return "unknown"
	}
	return filepath.Base(s.File) + ":" + strconv.Itoa(s.Line) + " (" + s.Func + ")"
}

// frames of these wrappers are skipped so the site points at the real caller
var wrapperPrefixes = []string{
	"github.com/Borislavv/page-hazard/pkg/hazard.(*Manager).",
	"github.com/Borislavv/page-hazard/pkg/session.(*Session).",
	"github.com/Borislavv/page-hazard/pkg/storage.(*Cache).",
}

func captureSite() *Site {
	var pcs [16]uintptr
	n := runtime.Callers(2, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if !more || !isWrapper(frame.Function) {
			return &Site{File: frame.File, Line: frame.Line, Func: shortFunc(frame.Function)}
		}
	}
}

func isWrapper(fn string) bool {
	for _, prefix := range wrapperPrefixes {
		if strings.HasPrefix(fn, prefix) {
			return true
		}
	}
	return false
}

func shortFunc(fn string) string {
	if i := strings.LastIndex(fn, "/"); i >= 0 {
		return fn[i+1:]
	}
	return fn
}

// Package bpath normalizes filesystem paths the way the VFS resolves
// them component-wise: collapsing repeated '/' and textually applying
// '.' and '..' before any lookup happens.
package bpath

import "ustr"

// Canonicalize collapses repeated slashes and resolves "." and ".."
// components of p textually, without touching the filesystem. The
// result is absolute exactly when p is, and never ends in '/' unless it
// is exactly "/". Resolving ".." above the root is a no-op at the root, mirroring
// shell `cd` behavior rather than erroring.
func Canonicalize(p ustr.Ustr) ustr.Ustr {
	abs := p.IsAbsolute()

	comps := split(p)
	stack := make([]ustr.Ustr, 0, len(comps))
	for _, c := range comps {
		switch {
		case len(c) == 0:
			continue
		case c.Isdot():
			continue
		case c.Isdotdot():
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		default:
			stack = append(stack, c)
		}
	}

	out := ustr.MkUstr()
	if abs {
		out = append(out, '/')
	}
	for i, c := range stack {
		if i > 0 {
			out = append(out, '/')
		}
		out = append(out, c...)
	}
	if len(out) == 0 {
		out = ustr.MkUstrRoot()
	}
	return out
}

// split breaks p into its '/'-delimited components, dropping empty
// components produced by repeated slashes.
func split(p ustr.Ustr) []ustr.Ustr {
	var comps []ustr.Ustr
	start := 0
	for i := 0; i <= len(p); i++ {
		if i == len(p) || p[i] == '/' {
			if i > start {
				comps = append(comps, p[start:i])
			}
			start = i + 1
		}
	}
	return comps
}

// Join concatenates a directory path and a single component, inserting
// exactly one '/' between them.
func Join(dir, name ustr.Ustr) ustr.Ustr {
	if len(dir) == 0 {
		return name
	}
	if dir[len(dir)-1] == '/' {
		return append(append(ustr.MkUstr(), dir...), name...)
	}
	out := append(ustr.MkUstr(), dir...)
	out = append(out, '/')
	return append(out, name...)
}

// Split separates the final component of p from its parent directory.
// Split("/a/b/c") returns ("/a/b", "c").
func Split(p ustr.Ustr) (dir, base ustr.Ustr) {
	idx := -1
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ustr.MkUstr(), p
	}
	if idx == 0 {
		return ustr.MkUstrRoot(), p[1:]
	}
	return p[:idx], p[idx+1:]
}

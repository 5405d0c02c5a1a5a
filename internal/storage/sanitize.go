// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// MaxStemLength caps the rune length of a sanitized file stem.
const MaxStemLength = 200

// fallbackStemLayout names a chat whose title sanitizes to nothing.
const fallbackStemLayout = "Chat_2006-01-02_15-04-05"

var forbiddenChars = regexp.MustCompile(`[/\\:*?"<>|]`)

// SanitizeFilename turns an arbitrary chat title into a file stem that is
// safe on Windows, macOS and Linux. Titles that reduce to nothing get a
// timestamped name.
func SanitizeFilename(name string) string {
	return sanitizeAt(name, time.Now())
}

func sanitizeAt(name string, now time.Time) string {
	if s := sanitizeStem(name); s != "" {
		return s
	}
	return now.Format(fallbackStemLayout)
}

// sanitizeStem is SanitizeFilename without the timestamp fallback. It
// returns "" for titles with no usable characters.
func sanitizeStem(name string) string {
	s := norm.NFC.String(name)
	s = forbiddenChars.ReplaceAllString(s, "_")
	s = strings.Join(strings.Fields(s), " ")

	if runes := []rune(s); len(runes) > MaxStemLength {
		s = strings.TrimRight(string(runes[:MaxStemLength]), " \t")
	}

	// Windows drops trailing dots and spaces silently.
	return strings.TrimRight(s, " .")
}

// sameStem compares two stems the way a case-insensitive filesystem would.
// A Caser keeps state, so each call builds its own.
func sameStem(a, b string) bool {
	fold := cases.Fold()
	return fold.String(norm.NFC.String(a)) == fold.String(norm.NFC.String(b))
}

// validName reports whether name can be used as a single path element.
func validName(name string) bool {
	if strings.TrimSpace(name) == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && filepath.Base(name) == name
}

// stemOf returns the file name of path without its .json extension.
func stemOf(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

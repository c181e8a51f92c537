package tui

import (
	"errors"
	"strings"

	"github.com/atotto/clipboard"
)

var errNoClipboard = errors.New("no clipboard utility found (install wl-clipboard, xclip or xsel)")

func copyToClipboard(s string) error {
	if clipboard.Unsupported {
		return errNoClipboard
	}
	return clipboard.WriteAll(strings.ReplaceAll(s, "\r\n", "\n"))
}

package main

import (
	"errors"
	"io"

	"golang.org/x/term"
)

// Ширина колонки имени в выводе chats.
const (
	chatNameWidth    = 32
	minChatNameWidth = 16
	maxChatNameWidth = 64
	// chatFixedColumns - ширина остальных колонок строки chats вместе с отступами.
	chatFixedColumns = 43
)

var errStdinIsTerminal = errors.New("stdin является терминалом: передайте экспорт через канал, например tgstats transcript -i - < result.json")

type fileDescriptor interface {
	Fd() uintptr
}

// isTerminal сообщает, подключен ли поток к терминалу.
func isTerminal(stream any) bool {
	f, ok := stream.(fileDescriptor)
	return ok && term.IsTerminal(int(f.Fd()))
}

// nameColumnWidth подбирает ширину колонки имени под ширину терминала.
// Вне терминала используется chatNameWidth.
func nameColumnWidth(w io.Writer) int {
	if !isTerminal(w) {
		return chatNameWidth
	}
	width, _, err := term.GetSize(int(w.(fileDescriptor).Fd()))
	if err != nil {
		return chatNameWidth
	}
	return min(max(width-chatFixedColumns, minChatNameWidth), maxChatNameWidth)
}

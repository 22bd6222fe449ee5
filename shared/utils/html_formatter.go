package utils

import (
	"html"
	"regexp"
	"strings"
)

var allowedTagPattern = regexp.MustCompile(`(?i)&lt;(/?)(b|i|code|s|u)&gt;`)

// HTMLFormatter экранирует текст, написанный автором контента, оставляя простые теги форматирования.
type HTMLFormatter struct{}

// NewHTMLFormatter создает форматтер.
func NewHTMLFormatter() *HTMLFormatter {
	return &HTMLFormatter{}
}

// Format экранирует спецсимволы HTML. Теги <b>, <i>, <code>, <s>, <u> без атрибутов сохраняются,
// любая другая разметка выводится как текст. Сохраненные теги балансируются: лишние закрывающие
// выводятся как текст, незакрытые закрываются в конце строки.
func (f *HTMLFormatter) Format(text string) string {
	if text == "" {
		return ""
	}
	escaped := html.EscapeString(text)

	var (
		sb    strings.Builder
		open  []string
		moved int
	)
	for _, loc := range allowedTagPattern.FindAllStringSubmatchIndex(escaped, -1) {
		sb.WriteString(escaped[moved:loc[0]])
		moved = loc[1]
		closing := loc[3] > loc[2]
		tag := strings.ToLower(escaped[loc[4]:loc[5]])

		if !closing {
			open = append(open, tag)
			sb.WriteString("<" + tag + ">")
			continue
		}
		depth := lastIndex(open, tag)
		if depth < 0 {
			sb.WriteString(escaped[loc[0]:loc[1]])
			continue
		}
		// Вложенные теги закрываются раньше внешнего.
		for i := len(open) - 1; i >= depth; i-- {
			sb.WriteString("</" + open[i] + ">")
		}
		open = open[:depth]
	}
	sb.WriteString(escaped[moved:])
	for i := len(open) - 1; i >= 0; i-- {
		sb.WriteString("</" + open[i] + ">")
	}
	return sb.String()
}

func lastIndex(stack []string, tag string) int {
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == tag {
			return i
		}
	}
	return -1
}

// FormatAll применяет Format к каждой строке.
func (f *HTMLFormatter) FormatAll(lines []string) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = f.Format(line)
	}
	return out
}

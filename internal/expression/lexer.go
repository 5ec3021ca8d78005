package expression

import (
	"strconv"
	"strings"
	"unicode"
)

type tokenType int

const (
	tokEOF tokenType = iota
	tokNumber
	tokIdent
	tokKeyword
	tokOp
)

type token struct {
	typ  tokenType
	text string
	num  float64
	pos  int
}

var keywords = map[string]bool{
	"if":     true,
	"else":   true,
	"while":  true,
	"return": true,
}

// Операторы упорядочены так, чтобы двухсимвольные проверялись первыми
var operators = []string{
	"&&", "||", "==", "!=", "<=", ">=",
	"+=", "-=", "*=", "/=", "%=", "^=",
	"+", "-", "*", "/", "%", "^", "<", ">", "!", "~", "?", ":", "=",
	"(", ")", ",", ";", "{", "}",
}

// lex разбивает формулу на токены
func lex(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		c := rune(src[i])
		switch {
		case unicode.IsSpace(c):
			i++
		case unicode.IsDigit(c) || (c == '.' && i+1 < len(src) && unicode.IsDigit(rune(src[i+1]))):
			start := i
			i = scanNumber(src, i)
			n, err := strconv.ParseFloat(src[start:i], 64)
			if err != nil {
				return nil, syntaxErr(src, start, "некорректное число %q", src[start:i])
			}
			toks = append(toks, token{typ: tokNumber, text: src[start:i], num: n, pos: start})
		case c == '_' || unicode.IsLetter(c):
			start := i
			for i < len(src) && (src[i] == '_' || unicode.IsLetter(rune(src[i])) || unicode.IsDigit(rune(src[i]))) {
				i++
			}
			word := src[start:i]
			typ := tokIdent
			if keywords[word] {
				typ = tokKeyword
			}
			toks = append(toks, token{typ: typ, text: word, pos: start})
		default:
			op := ""
			for _, candidate := range operators {
				if strings.HasPrefix(src[i:], candidate) {
					op = candidate
					break
				}
			}
			if op == "" {
				return nil, syntaxErr(src, i, "неожиданный символ %q", src[i])
			}
			toks = append(toks, token{typ: tokOp, text: op, pos: i})
			i += len(op)
		}
	}
	toks = append(toks, token{typ: tokEOF, pos: len(src)})
	return toks, nil
}

func scanNumber(src string, i int) int {
	digits := func() {
		for i < len(src) && unicode.IsDigit(rune(src[i])) {
			i++
		}
	}
	digits()
	if i < len(src) && src[i] == '.' {
		i++
		digits()
	}
	if i < len(src) && (src[i] == 'e' || src[i] == 'E') {
		j := i + 1
		if j < len(src) && (src[j] == '+' || src[j] == '-') {
			j++
		}
		if j < len(src) && unicode.IsDigit(rune(src[j])) {
			i = j
			digits()
		}
	}
	return i
}

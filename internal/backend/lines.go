package backend

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// ReadLines читает поток и вызывает fn для каждой непустой строки.
//
// Строка может прийти несколькими кусками: неполный хвост копится,
// пока не придёт '\n'. Завершающий '\r' отбрасывается. Последняя
// строка без '\n' отдаётся при EOF. Возвращает nil при штатном EOF.
func ReadLines(r io.Reader, fn func(line string)) error {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			line = strings.TrimRight(line, "\r\n")
			if strings.TrimSpace(line) != "" {
				fn(line)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

package featurefile

import (
	"path"
	"regexp"
	"strings"
)

// DefaultStepsPath — путь единственного файла, если в коде нет заголовков.
const DefaultStepsPath = "tests/steps/steps.ts"

// File — один файл из сгенерированного кода шагов.
type File struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Content string `json:"content"`
}

// Заголовок файла:
//
//	// ==========
//	// 📁 tests/pages/LoginPage.ts
//	// ==========
var fileHeader = regexp.MustCompile(`// =+\n// 📁 (.+)\n// =+\n`)

// SplitStepFiles разбивает код шагов на файлы по заголовкам.
// Содержимое файла — всё от заголовка до следующего заголовка.
func SplitStepFiles(code string) []File {
	matches := fileHeader.FindAllStringSubmatchIndex(code, -1)
	if len(matches) == 0 {
		if code == "" {
			return []File{}
		}
		return []File{{
			Name:    path.Base(DefaultStepsPath),
			Path:    DefaultStepsPath,
			Content: code,
		}}
	}

	files := make([]File, 0, len(matches))
	for i, m := range matches {
		end := len(code)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}

		p := strings.TrimSpace(code[m[2]:m[3]])
		files = append(files, File{
			Name:    path.Base(p),
			Path:    p,
			Content: strings.TrimSpace(code[m[1]:end]),
		})
	}
	return files
}

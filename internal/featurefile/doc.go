// Package featurefile разбирает содержимое feature: Gherkin-текст и
// сгенерированный код шагов, разбитый на файлы.
package featurefile

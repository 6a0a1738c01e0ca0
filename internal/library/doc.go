// Package library хранит features и целевые окружения.
//
// Features неизменяемы после добавления; перед добавлением Gherkin
// проверяется парсером (см. featurefile). Environments держит инвариант
// единственного активного окружения, который читает runner.Coordinator
// в начале каждого запуска.
package library

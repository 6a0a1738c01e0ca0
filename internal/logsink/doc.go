// Package logsink хранит лог выполнения запусков.
//
// Строки накапливаются между запусками, каждый запуск начинается
// с разделителя (Separator). Каждая строка помечена RunID, поэтому
// потребитель может выбрать строки одного запуска (RunLines) или
// читать общий поток (Lines, Subscribe).
package logsink

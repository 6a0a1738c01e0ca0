// Package command обрабатывает текстовые команды пользователя.
//
// Текст интерпретирует внешний OpenAI-совместимый сервис; если он
// запрашивает run_test_execution, Adapter находит feature по названию
// и запускает его через прямую точку входа раннера.
package command

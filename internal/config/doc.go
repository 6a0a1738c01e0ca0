// Package config загружает конфигурацию сервиса через viper:
// YAML-файл (необязательный), переменные STAGEHAND_* и значения по умолчанию.
// Блок execution перечитывается на лету при изменении файла.
package config

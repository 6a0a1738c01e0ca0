// Package artifact находит артефакты завершённых запусков.
package artifact

// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import "errors"

// ErrValidation — ошибка валидации входных данных.
var ErrValidation = errors.New("ошибка валидации")

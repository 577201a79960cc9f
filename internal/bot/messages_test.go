package bot

import (
	"errors"
	"fmt"
	"testing"

	"tgvidbot/internal/pipeline"
	"tgvidbot/internal/platform"
	"tgvidbot/internal/resolver"
)

func TestUserMessage(t *testing.T) {
	kind := func(k resolver.Kind) error {
		return fmt.Errorf("resolve: %w", &resolver.ExtractionError{Platform: platform.YouTube, Kind: k, Err: errors.New("x")})
	}
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"unsupported", fmt.Errorf("%w: %q", resolver.ErrUnsupportedPlatform, "https://example.com"), "❌ Эта платформа не поддерживается"},
		{"too large", fmt.Errorf("%w: about 3 GB", pipeline.ErrTooLarge), "⚠️ Файл слишком большой (более 2GB). Выберите меньшее качество."},
		{"copyright", kind(resolver.CopyrightClaim), "❌ Видео заблокировано по жалобе правообладателя"},
		{"private", kind(resolver.Private), "🔒 Это приватное видео"},
		{"unavailable", kind(resolver.Unavailable), "❌ Видео недоступно или было удалено"},
		{"auth", kind(resolver.RequiresAuth), "🔞 Для просмотра видео требуется вход в аккаунт"},
		{"generic kind", kind(resolver.Generic), "❌ Не удалось получить информацию о видео. Попробуйте позже."},
		{"plain error", errors.New("boom"), "❌ Не удалось получить информацию о видео. Попробуйте позже."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.want {
				t.Errorf("UserMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

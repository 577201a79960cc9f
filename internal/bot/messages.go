package bot

import (
	"errors"
	"fmt"

	"tgvidbot/internal/pipeline"
	"tgvidbot/internal/resolver"
	"tgvidbot/internal/store"
)

// User-facing texts.
const (
	greetingText    = "👋 Привет! Отправь мне ссылку на видео, и я помогу тебе его скачать."
	hintText        = "Отправьте мне ссылку на видео, и я помогу вам его скачать."
	fetchingText    = "⏳ Получаю информацию о видео..."
	processingError = "❌ Произошла ошибка при обработке видео"
	notFoundText    = "❌ Видео не найдено"
	busyText        = "⏳ Уже скачиваю, подождите"

	downloadingNote = "📥⌛️ Скачиваю из источника ⌛️📥"
	mergingNote     = "⚙️ Обрабатываю файл..."
	uploadingNote   = "📤 Отправляю в Telegram..."
	downloadFailed  = "❌ Ошибка при скачивании"

	refreshStatsText   = "🔄 Обновить"
	broadcastUsage     = "📤 Использование: /broadcast <текст> (HTML) или ответьте командой /broadcast на сообщение для пересылки."
	broadcastStartText = "⏳ Начинаю рассылку..."
)

// UserMessage maps a resolution or delivery error to the text shown to the user.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, resolver.ErrUnsupportedPlatform):
		return "❌ Эта платформа не поддерживается"
	case errors.Is(err, pipeline.ErrTooLarge):
		return "⚠️ Файл слишком большой (более 2GB). Выберите меньшее качество."
	}
	switch resolver.KindOf(err) {
	case resolver.CopyrightClaim:
		return "❌ Видео заблокировано по жалобе правообладателя"
	case resolver.Private:
		return "🔒 Это приватное видео"
	case resolver.Unavailable:
		return "❌ Видео недоступно или было удалено"
	case resolver.RequiresAuth:
		return "🔞 Для просмотра видео требуется вход в аккаунт"
	}
	return "❌ Не удалось получить информацию о видео. Попробуйте позже."
}

func statsText(s store.Stats, downloads int64) string {
	return fmt.Sprintf("📊 Статистика бота:\n\n"+
		"👥 Всего пользователей: %d\n"+
		"📈 Новых за день: %d\n"+
		"📊 Новых за неделю: %d\n"+
		"📋 Новых за месяц: %d\n"+
		"📥 Скачиваний: %d",
		s.Total, s.Day, s.Week, s.Month, downloads)
}

func broadcastDoneText(ok, failed int) string {
	return fmt.Sprintf("✅ Рассылка завершена\n\n📨 Успешно отправлено: %d\n❌ Ошибок: %d", ok, failed)
}

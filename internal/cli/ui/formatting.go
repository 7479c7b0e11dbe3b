package ui

import "fmt"

// FormatStatus возвращает иконку, цвет и текст для статуса записи
func FormatStatus(status string) (icon, color, text string) {
	switch status {
	case "completed":
		return IconCheckmark, ColorGreen, "записан"
	case "failed":
		return IconCross, ColorRed, "ошибка"
	case "recording":
		return IconPlay, ColorCyan, "записывается"
	case "pending":
		return IconClock, ColorYellow, "ожидает"
	default:
		return IconClock, ColorYellow, status
	}
}

// FormatReason описывает, почему запись была остановлена
func FormatReason(reason string) string {
	switch reason {
	case "threshold":
		return "достигнут последний ход"
	case "fractional-threshold":
		return "достигнута доля хода"
	case "victory":
		return "бой завершен"
	case "timeout":
		return "истек лимит времени"
	default:
		return reason
	}
}

// PrintBanner выводит заголовок при старте
func PrintBanner() {
	fmt.Println(ColorBold + IconFilm + " Showdown Replay Downloader" + ColorReset)
	fmt.Println(ColorGray + "Запись реплеев Pokémon Showdown в видео" + ColorReset)
	fmt.Println()
}

func Success(format string, args ...any) {
	fmt.Printf(ColorGreen+IconCheckmark+" "+format+ColorReset+"\n", args...)
}

func Failure(format string, args ...any) {
	fmt.Printf(ColorRed+IconCross+" "+format+ColorReset+"\n", args...)
}

func Info(format string, args ...any) {
	fmt.Printf(ColorCyan+format+ColorReset+"\n", args...)
}

func Hint(format string, args ...any) {
	fmt.Printf(ColorGray+format+ColorReset+"\n", args...)
}

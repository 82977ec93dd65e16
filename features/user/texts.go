package user

// LanguageNames maps language codes to their display names in the picker.
var LanguageNames = map[string]string{
	LangEnglish: "English",
	LangRussian: "Русский",
	LangSpanish: "Español",
}

var texts = map[string]map[string]string{
	LangEnglish: {
		"bot_title":     "📡 <b>IG Live Tracker</b>",
		"choose_option": "Choose an option below:",
		"welcome_back":  "Welcome back! 👋",
		"daily_reset":   "🌅 Good morning! Your daily points have been reset.",
		"check_live":    "🔴 Check Live",
		"my_account":    "👤 My Account",
		"referrals":     "🎁 Referrals",
		"help":          "❓ Help",
		"settings":      "⚙️ Settings",
		"back":          "⬅️ Back to Menu",
		"buy":           "⭐ Buy Points/Premium",
		"pick_language": "🌍 Please select your preferred language:",
	},
	LangRussian: {
		"bot_title":     "📡 <b>IG Live Tracker</b>",
		"choose_option": "Выберите опцию:",
		"welcome_back":  "С возвращением! 👋",
		"daily_reset":   "🌅 Доброе утро! Ваши ежедневные баллы обновлены.",
		"check_live":    "🔴 Кто в эфире",
		"my_account":    "👤 Мой аккаунт",
		"referrals":     "🎁 Рефералы",
		"help":          "❓ Помощь",
		"settings":      "⚙️ Настройки",
		"back":          "⬅️ Назад в меню",
		"buy":           "⭐ Купить баллы/премиум",
		"pick_language": "🌍 Выберите язык:",
	},
	LangSpanish: {
		"bot_title":     "📡 <b>IG Live Tracker</b>",
		"choose_option": "Elige una opción:",
		"welcome_back":  "¡Bienvenido de nuevo! 👋",
		"daily_reset":   "🌅 ¡Buenos días! Tus puntos diarios se han restablecido.",
		"check_live":    "🔴 Ver en vivo",
		"my_account":    "👤 Mi cuenta",
		"referrals":     "🎁 Referidos",
		"help":          "❓ Ayuda",
		"settings":      "⚙️ Ajustes",
		"back":          "⬅️ Volver al menú",
		"buy":           "⭐ Comprar puntos/premium",
		"pick_language": "🌍 Selecciona tu idioma:",
	},
}

// tr looks up a UI string, falling back to English for unknown languages or
// missing keys.
func tr(lang, key string) string {
	if m, ok := texts[lang]; ok {
		if s, ok := m[key]; ok {
			return s
		}
	}
	return texts[LangEnglish][key]
}

package worker

import (
	"strconv"
	"strings"
)

// ActionKind enumerates what a callback button can ask for.
type ActionKind string

const (
	ActionMyAccount    ActionKind = "my_account"
	ActionCheckLive    ActionKind = "check_live"
	ActionBack         ActionKind = "back"
	ActionHelp         ActionKind = "help"
	ActionReferrals    ActionKind = "referrals"
	ActionSettings     ActionKind = "settings"
	ActionBuy          ActionKind = "buy"
	ActionToggleNotify ActionKind = "toggle_notifications"
	ActionClearNotify  ActionKind = "clear_notifications"
	ActionPay          ActionKind = "pay"
	ActionSetInitLang  ActionKind = "setlang"
	ActionChangeLang   ActionKind = "lang"
	ActionLangPicker   ActionKind = "lang_picker"
	ActionUnknown      ActionKind = "unknown"
)

// Action is callback data decoded once, up front. Namespaced data carries
// its argument in Arg; check_live pagination lands in Page.
type Action struct {
	Kind ActionKind
	Arg  string
	Page int
}

// ParseAction decodes raw callback data into a tagged Action. Unknown data
// maps to ActionUnknown rather than an error so the dispatcher can log and
// move on.
func ParseAction(data string) Action {
	switch data {
	case "my_account":
		return Action{Kind: ActionMyAccount}
	case "check_live":
		return Action{Kind: ActionCheckLive, Page: 1}
	case "back":
		return Action{Kind: ActionBack}
	case "help":
		return Action{Kind: ActionHelp}
	case "referrals":
		return Action{Kind: ActionReferrals}
	case "settings":
		return Action{Kind: ActionSettings}
	case "buy":
		return Action{Kind: ActionBuy}
	case "toggle_notifications":
		return Action{Kind: ActionToggleNotify}
	case "clear_notifications":
		return Action{Kind: ActionClearNotify}
	}

	namespace, arg, ok := strings.Cut(data, ":")
	if !ok || arg == "" {
		return Action{Kind: ActionUnknown, Arg: data}
	}

	switch namespace {
	case "check_live":
		page, err := strconv.Atoi(arg)
		if err != nil || page < 1 {
			page = 1
		}
		return Action{Kind: ActionCheckLive, Page: page}
	case "pay":
		return Action{Kind: ActionPay, Arg: arg}
	case "setlang":
		return Action{Kind: ActionSetInitLang, Arg: arg}
	case "lang":
		if arg == "select" {
			return Action{Kind: ActionLangPicker}
		}
		return Action{Kind: ActionChangeLang, Arg: arg}
	}
	return Action{Kind: ActionUnknown, Arg: data}
}

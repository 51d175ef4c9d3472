package bot

import (
	"strconv"
	"strings"

	"github.com/polkiloo/digishop/internal/adapter/telegram"
	"github.com/polkiloo/digishop/internal/domain/model"
	"github.com/polkiloo/digishop/internal/i18n"
)

// Callback actions carried in button data as "<action>:<arg>".
const (
	actionLanguage   = "lang"
	actionMenu       = "menu"
	actionCategory   = "cat"
	actionProduct    = "prod"
	actionBuy        = "buy"
	actionCheck      = "check"
	actionCancel     = "cancel"
	actionFavorite   = "fav"
	actionTopupCheck = "tcheck"
)

const (
	menuMain     = "main"
	menuProducts = "products"
	menuStock    = "stock"
	menuProfile  = "profile"
	menuHistory  = "history"
	menuTopup    = "topup"
)

func callbackData(action string, arg any) string {
	switch v := arg.(type) {
	case int64:
		return action + ":" + strconv.FormatInt(v, 10)
	case string:
		return action + ":" + v
	default:
		return action
	}
}

func parseCallback(data string) (action, arg string) {
	action, arg, _ = strings.Cut(data, ":")
	return action, arg
}

func button(text, data string) telegram.InlineKeyboardButton {
	return telegram.InlineKeyboardButton{Text: text, CallbackData: data}
}

func linkButton(text, url string) telegram.InlineKeyboardButton {
	return telegram.InlineKeyboardButton{Text: text, URL: url}
}

func keyboard(rows ...[]telegram.InlineKeyboardButton) *telegram.InlineKeyboardMarkup {
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func row(buttons ...telegram.InlineKeyboardButton) []telegram.InlineKeyboardButton {
	return buttons
}

func languageKeyboard() *telegram.InlineKeyboardMarkup {
	return keyboard(row(
		button("🇬🇧 English", callbackData(actionLanguage, string(model.LanguageEn))),
		button("🇷🇺 Русский", callbackData(actionLanguage, string(model.LanguageRu))),
	))
}

func mainMenu(lang model.Language) *telegram.InlineKeyboardMarkup {
	return keyboard(
		row(button(i18n.Text(lang, i18n.MenuProducts), callbackData(actionMenu, menuProducts))),
		row(button(i18n.Text(lang, i18n.MenuStock), callbackData(actionMenu, menuStock))),
		row(
			button(i18n.Text(lang, i18n.MenuProfile), callbackData(actionMenu, menuProfile)),
			button(i18n.Text(lang, i18n.MenuHistory), callbackData(actionMenu, menuHistory)),
		),
		row(button(i18n.Text(lang, i18n.MenuTopup), callbackData(actionMenu, menuTopup))),
	)
}

func backRow(lang model.Language) []telegram.InlineKeyboardButton {
	return row(button(i18n.Text(lang, i18n.Back), callbackData(actionMenu, menuMain)))
}

func invoiceKeyboard(lang model.Language, payURL string, orderID int64) *telegram.InlineKeyboardMarkup {
	return keyboard(
		row(linkButton(i18n.Text(lang, i18n.PayButton), payURL)),
		row(
			button(i18n.Text(lang, i18n.CheckButton), callbackData(actionCheck, orderID)),
			button(i18n.Text(lang, i18n.CancelButton), callbackData(actionCancel, orderID)),
		),
	)
}

func topupKeyboard(lang model.Language, payURL string, invoiceID int64) *telegram.InlineKeyboardMarkup {
	return keyboard(
		row(linkButton(i18n.Text(lang, i18n.PayButton), payURL)),
		row(button(i18n.Text(lang, i18n.CheckButton), callbackData(actionTopupCheck, invoiceID))),
	)
}

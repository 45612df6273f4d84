package utils

import (
	"battle-seoul/models"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var supportedLanguages = []language.Tag{language.English, language.Korean}

var languageMatcher = language.NewMatcher(supportedLanguages)

var reasonMessages = map[models.Reason][2]string{
	models.ReasonCooldown:               {"Matching is cooling down, try again later", "매칭 대기 시간입니다. 잠시 후 다시 시도해 주세요"},
	models.ReasonInsufficientContenders: {"Not enough contenders are available to match", "매칭할 수 있는 콘텐츠가 부족합니다"},
	models.ReasonNoValidMatches:         {"No valid pairs could be formed", "조건에 맞는 대결 상대를 찾지 못했습니다"},
	models.ReasonAlreadyVoted:           {"You have already voted in this battle", "이미 이 배틀에 투표했습니다"},
	models.ReasonBattleEnded:            {"This battle has ended", "종료된 배틀입니다"},
	models.ReasonBattleNotFound:         {"Battle not found", "배틀을 찾을 수 없습니다"},
}

func init() {
	for reason, texts := range reasonMessages {
		_ = message.SetString(language.English, string(reason), texts[0])
		_ = message.SetString(language.Korean, string(reason), texts[1])
	}
}

// MatchLanguage picks the best supported language for an Accept-Language header.
func MatchLanguage(acceptLanguage string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return language.English
	}
	_, idx, _ := languageMatcher.Match(tags...)
	return supportedLanguages[idx]
}

// ReasonMessage renders a human readable message for a reason code.
func ReasonMessage(tag language.Tag, reason models.Reason) string {
	return message.NewPrinter(tag).Sprintf(string(reason))
}

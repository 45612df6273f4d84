package utils

import (
	"testing"

	"battle-seoul/models"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"
)

func TestMatchLanguage(t *testing.T) {
	assert.Equal(t, language.Korean, MatchLanguage("ko-KR,ko;q=0.9,en;q=0.8"))
	assert.Equal(t, language.English, MatchLanguage("en-US"))
	assert.Equal(t, language.English, MatchLanguage(""))
}

func TestReasonMessage(t *testing.T) {
	assert.Equal(t, "This battle has ended", ReasonMessage(language.English, models.ReasonBattleEnded))
	assert.Equal(t, "이미 이 배틀에 투표했습니다", ReasonMessage(language.Korean, models.ReasonAlreadyVoted))
}

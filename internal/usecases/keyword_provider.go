package usecases

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"viloai/internal/entities"
	"viloai/internal/interfaces"
)

// KeywordProvider is a deterministic classifier that needs no model vendor.
// It is used when no AI key is configured and in tests.
type KeywordProvider struct{}

func NewKeywordProvider() *KeywordProvider {
	return &KeywordProvider{}
}

// Checked in order; the first intent with a hit wins.
var intentKeywords = []struct {
	intent   entities.Intent
	keywords []string
}{
	{entities.IntentComplaint, []string{
		"valitus", "pettynyt", "huono", "rikki", "ei toimi", "hyvitys", "palautus",
		"complaint", "disappointed", "terrible", "broken", "refund", "doesn't work", "not working", "awful",
	}},
	{entities.IntentPriceInquiry, []string{
		"hinta", "hinnat", "hinnasto", "maksaa", "paljonko", "kustan", "€",
		"price", "cost", "how much", "pricing",
	}},
	{entities.IntentAvailability, []string{
		"saatavilla", "varastossa", "vapaa", "vapaita", "aukiolo", "auki", "varata", "ajanvara",
		"available", "availability", "in stock", "open", "book", "appointment",
	}},
	{entities.IntentLocation, []string{
		"missä", "sijainti", "sijaitse", "osoite", "mistä löyd",
		"where", "location", "address", "directions",
	}},
	{entities.IntentCompliment, []string{
		"ihana", "upea", "mahtava", "hieno", "kaunis", "kiitos",
		"love", "great", "amazing", "beautiful", "awesome", "nice", "thanks", "thank you",
	}},
}

var questionWords = []string{
	"mitä", "miten", "milloin", "kuka", "voiko", "onko", "saako", "kuinka",
	"what", "how", "when", "who", "can ", "could", "do you", "is there",
}

func detectIntent(text string) entities.Intent {
	lower := normalizeText(text)
	if lower == "" {
		return entities.IntentOther
	}
	for _, group := range intentKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(lower, kw) {
				return group.intent
			}
		}
	}
	if strings.Contains(lower, "?") {
		return entities.IntentGeneralQuestion
	}
	for _, w := range questionWords {
		if strings.HasPrefix(lower, w) {
			return entities.IntentGeneralQuestion
		}
	}
	if !hasLetters(lower) {
		return entities.IntentCompliment
	}
	return entities.IntentOther
}

func (p *KeywordProvider) Classify(ctx context.Context, req interfaces.ClassifyRequest) (*entities.ClassificationResult, error) {
	intent := detectIntent(req.Text)

	// A bare greeting takes its intent from the latest earlier customer turn.
	if intent == entities.IntentOther {
		for i := len(req.History) - 1; i >= 0; i-- {
			turn := req.History[i]
			if turn.Role != entities.TurnCustomer {
				continue
			}
			if prior := detectIntent(turn.Text); prior != entities.IntentOther {
				intent = prior
				break
			}
		}
	}

	confidence := 0.6
	if intent == entities.IntentOther {
		confidence = 0.3
	}

	fi, en := templateReplies(intent, req.Facts)
	return &entities.ClassificationResult{
		Intent:           intent,
		Confidence:       confidence,
		DetectedLanguage: GuessLanguage(req.Text),
		SuggestedReplyFI: fi,
		SuggestedReplyEN: en,
	}, nil
}

func (p *KeywordProvider) CheckRelevance(ctx context.Context, commentText string) (*entities.RelevanceVerdict, error) {
	switch detectIntent(commentText) {
	case entities.IntentCompliment, entities.IntentOther:
		return &entities.RelevanceVerdict{
			ShouldReply: false,
			Reason:      "no question or request",
			Confidence:  0.6,
		}, nil
	default:
		return &entities.RelevanceVerdict{
			ShouldReply: true,
			Reason:      "contains a question or request",
			Confidence:  0.6,
		}, nil
	}
}

func templateReplies(intent entities.Intent, facts []entities.BusinessRule) (fi, en string) {
	switch intent {
	case entities.IntentPriceInquiry:
		if line := factLine(facts, entities.FactPrice); line != "" {
			return "Hinnat: " + line, "Prices: " + line
		}
		return "Kiitos kysymyksestä! Lähetämme hinnat pian.", "Thanks for asking! We'll send you our prices shortly."
	case entities.IntentAvailability:
		if line := factLine(facts, entities.FactInventory); line != "" {
			return "Saatavuus: " + line, "Availability: " + line
		}
		return "Tarkistamme saatavuuden ja palaamme pian.", "We'll check availability and get back to you soon."
	case entities.IntentLocation:
		if line := factLine(facts, entities.FactInfo); line != "" {
			return "Tiedot: " + line, "Details: " + line
		}
		return "Lähetämme osoitteemme pian.", "We'll send you our address shortly."
	case entities.IntentComplaint:
		return "Olemme pahoillamme! Selvitämme asian mahdollisimman pian.", "We're sorry to hear that! We'll look into it right away."
	case entities.IntentCompliment:
		return "Kiitos paljon! 😊", "Thank you so much! 😊"
	case entities.IntentGeneralQuestion:
		if line := factLine(facts, entities.FactFAQ); line != "" {
			return line, line
		}
		return "Kiitos kysymyksestä! Vastaamme pian.", "Thanks for your question! We'll answer soon."
	default:
		return fallbackReplyFI, fallbackReplyEN
	}
}

func factLine(facts []entities.BusinessRule, category entities.FactCategory) string {
	var parts []string
	for _, f := range facts {
		if f.Category == category {
			parts = append(parts, fmt.Sprintf("%s %s", f.Key, f.Value))
		}
	}
	return strings.Join(parts, ", ")
}

var finnishMarkers = map[string]bool{
	"mitä": true, "mikä": true, "onko": true, "kiitos": true, "hei": true, "moi": true,
	"paljonko": true, "missä": true, "tämä": true, "teillä": true, "on": true, "ja": true,
	"ei": true, "kuinka": true, "voiko": true, "maksaa": true, "hinta": true, "te": true,
	"minä": true, "olette": true, "auki": true, "kyllä": true,
}

var englishMarkers = map[string]bool{
	"the": true, "is": true, "what": true, "how": true, "you": true, "do": true,
	"where": true, "thanks": true, "hello": true, "hi": true, "price": true, "can": true,
	"much": true, "are": true, "your": true, "open": true, "this": true, "i": true,
}

// GuessLanguage picks fi or en from the text alone. English is the default.
func GuessLanguage(text string) entities.Language {
	lower := strings.ToLower(text)
	if strings.ContainsAny(lower, "äöå") {
		return entities.LanguageFinnish
	}

	fi, en := 0, 0
	for _, word := range strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r)
	}) {
		if finnishMarkers[word] {
			fi++
		}
		if englishMarkers[word] {
			en++
		}
	}
	if fi > en {
		return entities.LanguageFinnish
	}
	return entities.LanguageEnglish
}

func hasLetters(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

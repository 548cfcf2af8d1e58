package intent

import "companion-server/internal/domain"

// categoryDifficulty is the static Power required to satisfy a request of a
// given category. Unlisted categories fall back to defaultDifficulty.
var categoryDifficulty = map[domain.Category]float64{
	domain.CategoryGreeting:         5,
	domain.CategoryFarewell:         5,
	domain.CategorySmallTalk:        10,
	domain.CategoryGift:             10,
	domain.CategoryApology:          10,
	domain.CategoryComplaint:        10,
	domain.CategoryCompliment:       15,
	domain.CategoryPersonalQuestion: 25,
	domain.CategoryFeelingsShare:    30,
	domain.CategoryDemand:           35,
	domain.CategoryFlirt:            40,
	domain.CategoryRoleplayCommand:  45,
	domain.CategoryDateRequest:      55,
	domain.CategoryKissRequest:      70,
	domain.CategoryLoveConfession:   75,
	domain.CategoryNSFWRequest:      85,
	domain.CategoryInsult:           0,
}

const defaultDifficulty = 15

// categoryBaseSentiment is the sentiment a category carries before lexicon
// adjustment.
var categoryBaseSentiment = map[domain.Category]float64{
	domain.CategoryGreeting:         0.3,
	domain.CategoryFarewell:         0.1,
	domain.CategorySmallTalk:        0.1,
	domain.CategoryPersonalQuestion: 0.2,
	domain.CategoryCompliment:       0.6,
	domain.CategoryFlirt:            0.5,
	domain.CategoryFeelingsShare:    0.3,
	domain.CategoryGift:             0.7,
	domain.CategoryApology:          0.4,
	domain.CategoryInsult:           -0.8,
	domain.CategoryComplaint:        -0.5,
	domain.CategoryDemand:           -0.3,
	domain.CategoryRoleplayCommand:  0.1,
	domain.CategoryDateRequest:      0.4,
	domain.CategoryLoveConfession:   0.8,
	domain.CategoryKissRequest:      0.4,
	domain.CategoryNSFWRequest:      0.2,
	domain.CategoryUnknown:          0,
}

// CategoryEmotionModifier is the flat stimulus contribution of a category on
// top of the scaled sentiment. Consumed by the emotion engine.
var CategoryEmotionModifier = map[domain.Category]float64{
	domain.CategoryCompliment:     3,
	domain.CategoryFlirt:          2,
	domain.CategoryGift:           6,
	domain.CategoryApology:        4,
	domain.CategoryLoveConfession: 5,
	domain.CategoryInsult:         -8,
	domain.CategoryComplaint:      -4,
	domain.CategoryDemand:         -2,
}

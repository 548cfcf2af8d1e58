package intent

// Keyword lexicons for the rule table and the sentiment adjustment pass.
// Matching is lowercase substring over the whole message; multi-word entries
// are allowed. Weights follow the differentiated-weight idea: strong markers
// score higher so a single weak hit does not flip sentiment.

type weightedKeyword struct {
	keyword string
	weight  float64
}

// positiveLexicon / negativeLexicon adjust the category base sentiment.
var positiveLexicon = []weightedKeyword{
	{"love", 0.15}, {"adore", 0.15}, {"wonderful", 0.1}, {"amazing", 0.1},
	{"beautiful", 0.1}, {"sweet", 0.1}, {"happy", 0.1}, {"thank", 0.1},
	{"best", 0.1}, {"great", 0.05}, {"nice", 0.05},
}

var negativeLexicon = []weightedKeyword{
	{"hate", 0.2}, {"stupid", 0.2}, {"ugly", 0.15}, {"boring", 0.1},
	{"annoying", 0.15}, {"shut up", 0.2}, {"worst", 0.15}, {"awful", 0.1},
	{"terrible", 0.1}, {"useless", 0.15}, {"leave me alone", 0.15},
}

// maxLexiconAdjustment bounds the cumulative lexicon shift in either
// direction before the final [-1, 1] clamp.
const maxLexiconAdjustment = 0.3

// nsfwKeywords is the independent NSFW marker set, orthogonal to category:
// any category can carry is_nsfw.
var nsfwKeywords = []string{
	"nsfw", "naked", "undress", "strip for", "sext", "erotic",
	"make love", "sleep with me", "in bed with", "lewd", "horny",
	"take off your", "show me your body",
}

// blockKeywords trips the safety flag. Deliberately narrow: full moderation
// is a separate collaborator; this is only a last-line stop for content the
// core must never forward to the generator.
var blockKeywords = []string{
	"kill yourself", "kys", "how to make a bomb",
}

// Per-category trigger keyword groups for the ordered rule table.
var (
	greetingKeywords = []string{
		"hello", "hi ", "hi!", "hi,", "hey", "good morning", "good evening",
		"good afternoon", "morning!", "yo ",
	}
	farewellKeywords = []string{
		"goodbye", "good bye", "bye", "good night", "gotta go", "see you",
		"talk later", "cya",
	}
	apologyKeywords = []string{
		"sorry", "i apologize", "forgive me", "my bad", "i was wrong",
	}
	giftKeywords = []string{
		"a gift for you", "got you a gift", "i bought you", "here's a present",
		"this present is for you", "flowers for you",
	}
	confessionKeywords = []string{
		"i love you", "i'm in love with you", "im in love with you",
		"be my girlfriend", "be my boyfriend", "i have feelings for you",
	}
	kissKeywords = []string{
		"kiss me", "can i kiss", "may i kiss", "want to kiss you", "give me a kiss",
	}
	dateKeywords = []string{
		"go on a date", "go out with me", "have dinner with me",
		"meet me tonight", "let's go out", "lets go out",
	}
	flirtKeywords = []string{
		"cutie", "you're cute", "youre cute", "so pretty", "gorgeous",
		"miss you", "thinking about you", "wink", ";)", "😘", "❤",
	}
	complimentKeywords = []string{
		"you're amazing", "youre amazing", "you are amazing", "well done",
		"you're smart", "you're the best", "proud of you", "i like your",
	}
	insultKeywords = []string{
		"you're stupid", "youre stupid", "you are stupid", "i hate you",
		"you're ugly", "idiot", "pathetic", "you're useless", "dumb",
	}
	complaintKeywords = []string{
		"you never", "you always", "you forgot", "you don't care",
		"you dont care", "why didn't you", "why didnt you", "disappointed in you",
	}
	demandKeywords = []string{
		"you must", "do it now", "i order you", "right now!", "obey",
		"do as i say",
	}
	roleplayKeywords = []string{
		"let's pretend", "lets pretend", "roleplay", "act as", "imagine you are",
		"pretend to be",
	}
	feelingsKeywords = []string{
		"i feel", "i've been feeling", "ive been feeling", "i'm sad", "im sad",
		"i'm anxious", "im anxious", "i'm lonely", "im lonely", "rough day",
		"hard day",
	}
	personalQuestionKeywords = []string{
		"what do you like", "what's your favorite", "whats your favorite",
		"tell me about yourself", "what do you think about", "do you like",
		"what is your dream", "how do you feel",
	}
)

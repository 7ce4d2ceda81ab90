package bot

import "math/rand"

var greetingTemplates = []string{
	"👋 Hi! I watch the price and shout when it moves.",
	"🌸 Hello! I keep an eye on the price for the chat.",
	"📊 Hey! Ask me for /price any time.",
}

var privateTemplates = []string{
	"🚫 I don't chat in private.",
	"🙅 Private messages are not my thing.",
	"🤐 I only talk in the group.",
}

// pickTemplate selects one of templates from seed. The same seed always yields the same text.
func pickTemplate(seed int64, templates []string) string {
	if len(templates) == 0 {
		return ""
	}
	return templates[rand.New(rand.NewSource(seed)).Intn(len(templates))]
}

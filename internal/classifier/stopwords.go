package classifier

// portugueseStopWords is the usual Portuguese function-word list, accent-folded
// to match normalized text.
var portugueseStopWords = []string{
	"a", "ao", "aos", "aquela", "aquelas", "aquele", "aqueles", "aquilo", "as", "ate",
	"com", "como", "da", "das", "de", "dela", "delas", "dele", "deles", "depois",
	"do", "dos", "e", "ela", "elas", "ele", "eles", "em", "entre", "era",
	"eram", "essa", "essas", "esse", "esses", "esta", "estas", "este", "estes", "eu",
	"foi", "foram", "ha", "isso", "isto", "ja", "lhe", "lhes", "mais", "mas",
	"me", "mesmo", "meu", "meus", "minha", "minhas", "muito", "na", "nas", "nao",
	"nem", "no", "nos", "nossa", "nossas", "nosso", "nossos", "num", "numa", "o",
	"os", "ou", "para", "pela", "pelas", "pelo", "pelos", "por", "qual", "quando",
	"que", "quem", "se", "sem", "ser", "seu", "seus", "so", "sua", "suas",
	"tambem", "te", "tem", "ter", "teu", "teus", "tu", "tua", "tuas", "um",
	"uma", "umas", "uns", "voce", "voces", "vos",
}

func stopWordSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

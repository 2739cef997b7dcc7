package enrich

import "strings"

// TooLongSummary is returned instead of a summary when the article is too
// long to summarize in one call.
const TooLongSummary = "O conteúdo é muito longo para ser resumido diretamente. Por favor, divida o texto em partes menores."

// Categories is the closed set of labels the categorizer may assign.
var Categories = []string{
	"Política",
	"Economia",
	"Sociedade",
	"Internacional",
	"Desporto",
	"Cultura",
	"Ciência",
	"Tecnologia",
	"Saúde",
	"Ambiente",
	"Educação",
	"Justiça",
	"Opinião",
	"Entretenimento",
}

// CredibleSources seeds the source analyzer with outlets known to be credible.
var CredibleSources = []string{
	"Reuters", "BBC News", "Agence France-Presse", "Associated Press",
	"The New York Times", "The Washington Post", "CNN", "Al Jazeera",
	"Bloomberg", "The Guardian", "Agência Lusa", "Público", "Diário de Notícias",
	"Expresso", "RTP (Rádio e Televisão de Portugal)", "Jornal de Notícias",
	"Observador", "SIC Notícias",
}

const summarizeSystem = "You are a helpful assistant whose task is to summarize articles in Portuguese of Portugal."

const summarizeUser = "Resumir este texto em três frases densas de informação, de forma clara e sucinta: "

var categorizeSystem = `You classify news articles. Answer with exactly one category from this list and nothing else:
` + strings.Join(Categories, ", ") + `
Do not explain your choice.`

var sourcesSystem = `You will be provided by the user with an article. The article may cite sources of information.
Extract every news outlet and every social media platform cited in the article, with the number of times each is mentioned. Only include sources mentioned at least once.
Outlets such as ` + strings.Join(CredibleSources, ", ") + ` are credible news sources.
Reply with a single JSON object and nothing else, in this exact shape:
{"credible_news_sources": {"<name>": <count>}, "social_media": {"<name>": <count>}}
If the article cites no sources, reply with:
{"credible_news_sources": {}, "social_media": {}}`

const questionsSystem = `You help readers practice lateral reading: checking an article's trustworthiness by consulting other, independent sources.
Write exactly 10 questions a reader should investigate outside the article to judge whether it is trustworthy (who is behind it, what evidence supports its claims, what other sources say).
Order them from most to least important. Write one question per line, numbered "1. " to "10. ", with no other text.
Write the questions in Portuguese of Portugal.`

const languageSystem = `You analyze the language of news articles for bias.
Report, with a short textual justification for each finding:
1. Emotionally charged terms.
2. Biased language.
3. Loaded terms.
4. Overall sentiment (positive, negative or neutral).
5. Specific bias categories present (for example political, ideological, confirmation, sensationalism).
Quote the words from the article that support each finding. Write the report in Portuguese of Portugal.`

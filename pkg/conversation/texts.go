package conversation

import "stylegenie/pkg/models"

const (
	defaultImageDescription = "по картинке"
	textImageOnly           = "Вот картинка"

	textAskPrice       = "Понял! Уточни ценовой сегмент:"
	textAskOccasion    = "Повод или тип образа?"
	textDidYouFind     = "Нашёл ли ты то, что хотел?"
	textGlad           = "Отлично! Если захочешь подобрать ещё образ — просто опиши, что ищешь."
	textOffer          = "Тогда можем помочь так:"
	textMasters        = "Подбор ателье под твой образ и бюджет. Примерная цена изделия:"
	textGenerationSoon = "Генерация образа по описанию в разработке. Скоро можно будет получить картинку платья или образа по твоим пожеланиям."
	textStartOver      = "Опиши, какой образ хочешь найти — начнём заново."
	textSearchFailed   = "Ошибка поиска. Попробуй ещё раз или выбери повод заново."

	labelYes           = "Да, нашёл"
	labelNo            = "Нет, не то"
	labelFindMaster    = "Найти мастера по пошиву"
	labelGenerateImage = "Сгенерировать картинку образа"
	labelNewSearch     = "Новый поиск"
)

// Masters returns the fixed list of ateliers offered when nothing fits.
func Masters() []models.Master {
	return []models.Master{
		{
			ID:        "m1",
			Name:      "Ателье «Подиум»",
			Image:     "https://images.unsplash.com/photo-1558618666-fcd25c85cd64?w=400&h=533&fit=crop",
			PriceFrom: 15000,
			PriceTo:   price(45000),
		},
		{
			ID:        "m2",
			Name:      "Мастерская Ольги К.",
			Image:     "https://images.unsplash.com/photo-1594938298603-c8148c4dae35?w=400&h=533&fit=crop",
			PriceFrom: 8000,
			PriceTo:   price(25000),
		},
		{
			ID:        "m3",
			Name:      "Ателье «Ткани и форма»",
			Image:     "https://images.unsplash.com/photo-1558171813-4c088753af8f?w=400&h=533&fit=crop",
			PriceFrom: 25000,
			PriceTo:   price(80000),
		},
	}
}

func price(v int64) *int64 { return &v }

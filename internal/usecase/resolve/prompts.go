package resolve

// Парафраз нужен как поисковый запрос: короткие жаргонные названия
// признаков матчатся хуже, чем развёрнутое описание.
const paraphrasePrompt = `Ты - эксперт по геологии Каспийского моря и нефтегазовой геологии.

Пользователь задал вопрос: "%s"

Сформулируй краткое описание геологического признака (показателя, измерения),
о котором спрашивает пользователь. Описание должно объяснять, что это за
признак и что он характеризует, как в справочнике.

Правила:
1. Верни 1-3 предложения, без вводных слов
2. Не отвечай на сам вопрос, только опиши признак
3. Если вопрос общий, опиши тему вопроса

Верни ТОЛЬКО описание, без дополнительных комментариев.`

const matchPrompt = `Ты - эксперт по геологическим данным Каспийского моря.

Вопрос пользователя: "%s"

Найден признак в базе данных:
Название: %s
Описание: %s

Может ли этот признак помочь ответить на вопрос пользователя?

Верни ТОЛЬКО одно слово: ДА или НЕТ`

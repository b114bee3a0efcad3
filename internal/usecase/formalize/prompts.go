package formalize

const formalizationPrompt = `Ты - эксперт по анализу геологических данных Каспийского моря.
Твоя задача - формализовать запрос пользователя и извлечь структурированную информацию.

Доступные признаки в базе данных:
%s

Доступные действия/флаги:
- max: максимальное значение
- min: минимальное значение
- avg: среднее значение
- sum: сумма
- count: количество
- list: список всех значений

Запрос пользователя: "%s"

Проанализируй запрос и верни ТОЛЬКО валидный JSON в следующем формате:
{
    "attributes": ["список", "признаков", "для", "запроса"],
    "location": "название региона или места (если указано, иначе null)",
    "action": "одно из действий: max, min, avg, sum, count, list (если указано, иначе null)",
    "filters": {"дополнительные": "фильтры в формате ключ-значение"}
}

Правила:
1. В attributes укажи ТОЛЬКО те признаки, которые упоминаются в запросе или логически необходимы
2. Если пользователь спрашивает про конкретное место/регион, укажи его в location
3. Если пользователь просит найти максимум/минимум/среднее, укажи соответствующее действие
4. Если действие не указано явно, но логически требуется (например, "найти наибольшее"), определи его
5. Если запрос неясен или некорректен, верни пустые списки и null значения
6. Используй ТОЛЬКО доступные признаки и действия из списков выше

Верни ТОЛЬКО JSON, без дополнительного текста.`

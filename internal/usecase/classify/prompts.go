package classify

// Промпт воспроизводит рубрикацию запросов к геологической базе:
// структурированные условия, семантический поиск или их комбинация.
const classificationPrompt = `Ты - эксперт по анализу запросов к геологической базе данных.

Определи тип запроса пользователя:

1. СТРУКТУРИРОВАННЫЙ ЗАПРОС - запрос с конкретными условиями, фильтрами, числовыми значениями:
   - Примеры: "Где R0 > 1.0%%?", "Найди все записи с глубиной больше 1000 метров",
     "Покажи максимальное значение Сорг в регионе Южный Каспий"
   - Характеристики: содержит операторы сравнения (> < = >= <=), конкретные числа, названия полей

2. СЕМАНТИЧЕСКИЙ ЗАПРОС - запрос на поиск информации по смыслу, без конкретных условий:
   - Примеры: "Расскажи о зрелой нефти", "Что такое R0?", "Информация о геологических слоях",
     "Какие данные есть о нефтегазоносности?"
   - Характеристики: общие вопросы, поиск информации, объяснения понятий

3. КОМБИНИРОВАННЫЙ - содержит и структурированные условия, и семантический поиск

Запрос пользователя: "%s"

Верни ТОЛЬКО одно слово: STRUCTURED, SEMANTIC или COMBINED`

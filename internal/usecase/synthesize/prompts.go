package synthesize

// Генерация: %s = схема таблицы, %s = вопрос, %s = признак, %s = описание
// признака, %s = имя таблицы.
const generationPrompt = `Ты - эксперт по SQL и геологическим данным Каспийского моря.

Схема таблицы:
%s

Пользователь задал вопрос: "%s"

Релевантный признак (колонка) в таблице: "%s"
Описание признака: %s

Составь SQL запрос к таблице %s, который извлекает данные для ответа на вопрос.

Правила:
1. Используй ТОЛЬКО колонки из схемы выше, с ТОЧНЫМИ названиями
2. Названия колонок могут содержать русские буквы, пробелы, запятые и знак %% - заключай такие названия в двойные кавычки
3. НЕ переводи и НЕ изменяй названия колонок
4. Числовые значения в запросе пиши без знака %%
5. Один SELECT запрос, без точки с запятой в конце
6. Исключай строки, где значение признака NULL

Верни ТОЛЬКО SQL запрос, без пояснений и markdown-форматирования.`

// Первая починка: %s = схема, %s = признак, %s = описание, %s = запрос,
// %s = текст ошибки, %s = кандидаты.
const fixPrompt = `Ты - эксперт по SQL.

SQL запрос завершился с ошибкой.

Схема таблицы:
%s

Запрос строился для признака "%s": %s

Запрос:
%s

Ошибка:
%s

Возможно, имелись в виду эти колонки: %s

Исправь запрос. Используй ТОЧНЫЕ названия колонок из схемы, заключай названия
со спецсимволами в двойные кавычки.

Верни ТОЛЬКО исправленный SQL запрос, без пояснений.`

// Вторая починка получает всю историю ошибок - модель видит, какие варианты
// уже не сработали. %s = схема, %s = признак, %s = описание, %s = последний
// запрос, %s = история ошибок, %s = все кандидаты.
const fixPromptV2 = `Ты - эксперт по SQL.

Несколько попыток выполнить SQL запрос завершились ошибками.

Схема таблицы:
%s

Запрос строился для признака "%s": %s

Последний запрос:
%s

История ошибок:
%s

Все колонки, предложенные базой данных: %s

Напиши запрос заново с нуля. Не повторяй прошлые ошибки: бери названия колонок
ТОЛЬКО из схемы или из списка предложенных, в двойных кавычках.

Верни ТОЛЬКО SQL запрос, без пояснений.`

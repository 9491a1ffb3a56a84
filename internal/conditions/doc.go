// Package conditions реализует DSL условий workflow: дерево из групп
// (and/or) и листьев (поле, оператор, значение), хранимое в JSONB.
//
// Дерево парсится один раз (ParseTree) и затем вычисляется (Evaluate)
// против контекста с данными записи и изменениями полей. Вычисление
// никогда не возвращает ошибку: неизвестный оператор трактуется как
// true, некорректный regex — как false.
package conditions

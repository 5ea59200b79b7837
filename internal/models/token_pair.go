package models

import "time"

// TokenPair — пара токенов, выдаваемая при регистрации, входе и обновлении.
//
// Описание:
//   - AccessToken — короткоживущий JWT, клиент держит его в памяти и
//     передаёт в заголовке Authorization;
//   - RefreshToken — долгоживущий JWT, доставляется только HTTP-only cookie;
//     на сервере хранится его хэш;
//   - AccessExpiresAt/RefreshExpiresAt — моменты истечения (UTC).
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// AuthResult — результат регистрации, входа или ротации refresh-токена.
type AuthResult struct {
	User   *User
	Tokens *TokenPair
}

package services

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esilogis/backend/internal/apperror"
	"github.com/esilogis/backend/internal/models"
)

func TestRegisterAndLogin(t *testing.T) {
	conn := newTestDB(t)
	auth := NewAuthService(conn, "test-secret", time.Hour)

	reg, err := auth.Register(ctxBG, RegisterInput{
		Email: "Alice@Esilogis.test", Password: "hunter22", FirstName: "Alice", LastName: "Martin",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, reg.User.Role)
	assert.Equal(t, "alice@esilogis.test", reg.User.Email)
	assert.NotEmpty(t, reg.Token)

	_, err = auth.Register(ctxBG, RegisterInput{
		Email: "alice@esilogis.test", Password: "hunter22", FirstName: "Alice", LastName: "Martin",
	})
	requireKind(t, err, apperror.KindConflict)

	login, err := auth.Login(ctxBG, "alice@esilogis.test", "hunter22")
	require.NoError(t, err)

	claims, err := auth.ParseToken(login.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, claims.ID)
	assert.Equal(t, "alice@esilogis.test", claims.Email)
	assert.Equal(t, models.RoleUser, claims.Actor().Role)

	_, err = auth.Login(ctxBG, "alice@esilogis.test", "wrong")
	requireKind(t, err, apperror.KindUnauthorized)
	_, err = auth.Login(ctxBG, "nobody@esilogis.test", "hunter22")
	requireKind(t, err, apperror.KindUnauthorized)

	me, err := auth.Me(ctxBG, reg.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", me.FirstName)
}

func TestRegisterValidation(t *testing.T) {
	auth := NewAuthService(newTestDB(t), "test-secret", time.Hour)

	tests := []RegisterInput{
		{Email: "not-an-email", Password: "hunter22", FirstName: "A", LastName: "B"},
		{Email: "a@b.test", Password: "short", FirstName: "A", LastName: "B"},
		{Email: "a@b.test", Password: "hunter22", FirstName: "", LastName: "B"},
	}
	for _, in := range tests {
		_, err := auth.Register(ctxBG, in)
		requireKind(t, err, apperror.KindValidation)
	}
}

func TestParseTokenRejects(t *testing.T) {
	auth := NewAuthService(nil, "test-secret", time.Hour)
	person := &models.Person{ID: 4, Email: "t@esilogis.test", Role: models.RoleTechnician}

	t.Run("expired", func(t *testing.T) {
		auth.now = func() time.Time { return fixedNow }
		token, _, err := auth.GenerateToken(person)
		require.NoError(t, err)

		auth.now = func() time.Time { return fixedNow.Add(2 * time.Hour) }
		_, err = auth.ParseToken(token)
		requireKind(t, err, apperror.KindUnauthorized)
		assert.Contains(t, err.Error(), "expired")
		auth.now = time.Now
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewAuthService(nil, "other-secret", time.Hour)
		token, _, err := other.GenerateToken(person)
		require.NoError(t, err)
		_, err = auth.ParseToken(token)
		requireKind(t, err, apperror.KindUnauthorized)
	})

	t.Run("none algorithm", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
			ID: 4, Email: "t@esilogis.test", Role: models.RoleAdmin,
			RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		})
		signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = auth.ParseToken(signed)
		requireKind(t, err, apperror.KindUnauthorized)
	})

	t.Run("unknown role", func(t *testing.T) {
		token, _, err := auth.GenerateToken(&models.Person{ID: 4, Email: "x@y.test", Role: "ROOT"})
		require.NoError(t, err)
		_, err = auth.ParseToken(token)
		requireKind(t, err, apperror.KindUnauthorized)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := auth.ParseToken("not.a.token")
		requireKind(t, err, apperror.KindUnauthorized)
	})
}

func TestPersonService(t *testing.T) {
	f := newFixture(t)
	persons := NewPersonService(f.db)

	_, err := persons.CreatePerson(ctxBG, f.tech1, CreatePersonInput{
		Email: "new@esilogis.test", Password: "secret1", FirstName: "N", LastName: "P", Role: "TECHNICIAN",
	})
	requireKind(t, err, apperror.KindForbidden)

	created, err := persons.CreatePerson(ctxBG, f.admin, CreatePersonInput{
		Email: "new@esilogis.test", Password: "secret1", FirstName: "N", LastName: "P", Role: "technician",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleTechnician, created.Role)

	_, err = persons.CreatePerson(ctxBG, f.admin, CreatePersonInput{
		Email: "bad@esilogis.test", Password: "secret1", FirstName: "N", LastName: "P", Role: "MANAGER",
	})
	requireKind(t, err, apperror.KindValidation)

	techs, err := persons.ListTechnicians(ctxBG)
	require.NoError(t, err)
	assert.Len(t, techs, 3)
	for _, p := range techs {
		assert.Equal(t, models.RoleTechnician, p.Role)
	}

	all, err := persons.ListPersons(ctxBG, "")
	require.NoError(t, err)
	assert.Len(t, all, 5)

	_, err = persons.ListPersons(ctxBG, "GUEST")
	requireKind(t, err, apperror.KindValidation)
}

func TestLocationService(t *testing.T) {
	f := newFixture(t)
	locations := NewLocationService(f.db)

	_, err := locations.CreateLocation(ctxBG, f.user, CreateLocationInput{Name: "Annex"})
	requireKind(t, err, apperror.KindForbidden)

	annex, err := locations.CreateLocation(ctxBG, f.admin, CreateLocationInput{Name: " Annex ", Floor: strPtr("2")})
	require.NoError(t, err)
	assert.Equal(t, "Annex", annex.Name)

	_, err = locations.CreateLocation(ctxBG, f.admin, CreateLocationInput{Name: "Annex"})
	requireKind(t, err, apperror.KindConflict)

	_, err = locations.CreateEquipment(ctxBG, f.admin, CreateEquipmentInput{Name: "Pump", LocationID: 999})
	requireKind(t, err, apperror.KindNotFound)

	pump, err := locations.CreateEquipment(ctxBG, f.admin, CreateEquipmentInput{
		Name: "Pump", LocationID: annex.ID, Barcode: strPtr("EQ-0042"),
	})
	require.NoError(t, err)

	list, err := locations.ListEquipment(ctxBG, annex.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, pump.ID, list[0].ID)

	found, err := locations.FindEquipmentByBarcode(ctxBG, "EQ-0042")
	require.NoError(t, err)
	assert.Equal(t, pump.ID, found.ID)
	require.NotNil(t, found.Location)
	assert.Equal(t, "Annex", found.Location.Name)

	_, err = locations.FindEquipmentByBarcode(ctxBG, "EQ-9999")
	requireKind(t, err, apperror.KindNotFound)

	all, err := locations.ListLocations(ctxBG)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ovalledev/sigex/internal/domain"
	"github.com/ovalledev/sigex/internal/logger"
	"github.com/ovalledev/sigex/internal/store"
)

// In-memory stores used by the handler tests. They enforce the same
// guards as the SQL stores (estado-guarded updates, role exclusivity,
// the version cap) so that handler behavior can be asserted without a
// database.

type mockExpedienteStore struct {
	nextID  int64
	byID    map[int64]*store.Expediente
	cambios []store.CambioEstado
	deleted []int64
}

func newMockExpedienteStore() *mockExpedienteStore {
	return &mockExpedienteStore{byID: map[int64]*store.Expediente{}}
}

func (m *mockExpedienteStore) add(exp store.Expediente) *store.Expediente {
	m.nextID++
	exp.ID = m.nextID
	exp.CreadoEn = time.Now()
	exp.ActualizadoEn = exp.CreadoEn
	m.byID[exp.ID] = &exp
	return &exp
}

func (m *mockExpedienteStore) Create(_ context.Context, exp *store.Expediente) error {
	m.nextID++
	exp.ID = m.nextID
	exp.CreadoEn = time.Now()
	exp.ActualizadoEn = exp.CreadoEn
	cp := *exp
	m.byID[exp.ID] = &cp
	return nil
}

func (m *mockExpedienteStore) GetByID(_ context.Context, id int64) (*store.Expediente, error) {
	exp, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *exp
	return &cp, nil
}

func (m *mockExpedienteStore) List(_ context.Context, f store.ExpedienteFilter) ([]store.Expediente, error) {
	out := []store.Expediente{}
	for _, exp := range m.byID {
		if len(f.MunicipioIDs) > 0 && !containsID(f.MunicipioIDs, exp.MunicipioID) {
			continue
		}
		if f.Estado != "" && exp.Estado != f.Estado {
			continue
		}
		if f.ResponsableID != 0 && exp.ResponsableID != f.ResponsableID {
			continue
		}
		out = append(out, *exp)
	}
	return out, nil
}

func (m *mockExpedienteStore) Update(_ context.Context, exp *store.Expediente) error {
	if _, ok := m.byID[exp.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *exp
	cp.ActualizadoEn = time.Now()
	m.byID[exp.ID] = &cp
	return nil
}

func (m *mockExpedienteStore) ChangeEstado(_ context.Context, c store.CambioEstado) error {
	exp, ok := m.byID[c.ExpedienteID]
	if !ok || exp.Estado != c.Desde {
		return domain.ErrConcurrentUpdate
	}
	exp.Estado = c.Hacia
	if c.FechaAprobacion != nil {
		exp.FechaAprobacion = c.FechaAprobacion
	}
	exp.ActualizadoEn = time.Now()
	m.cambios = append(m.cambios, c)
	return nil
}

func (m *mockExpedienteStore) Delete(_ context.Context, id int64) error {
	exp, ok := m.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	if exp.Estado != domain.EstadoRecibido {
		return domain.ErrConcurrentUpdate
	}
	delete(m.byID, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockExpedienteStore) ListTiposSolicitud(_ context.Context) ([]store.TipoSolicitud, error) {
	return []store.TipoSolicitud{{ID: 1, Nombre: "Proyecto de Infraestructura", Activo: true}}, nil
}

type mockRevisionStore struct {
	expedientes *mockExpedienteStore
	nextID      int64
	byExp       map[int64][]store.RevisionFinanciera
}

func (m *mockRevisionStore) Create(ctx context.Context, rev *store.RevisionFinanciera, cascada *store.CambioEstado) error {
	// The SQL store runs insert and cascade in one transaction; a
	// rejected cascade means no revision row either.
	if cascada != nil {
		if err := m.expedientes.ChangeEstado(ctx, *cascada); err != nil {
			return err
		}
	}
	m.nextID++
	rev.ID = m.nextID
	rev.FechaRevision = time.Now()
	m.byExp[rev.ExpedienteID] = append(m.byExp[rev.ExpedienteID], *rev)
	return nil
}

func (m *mockRevisionStore) ListByExpediente(_ context.Context, expedienteID int64) ([]store.RevisionFinanciera, error) {
	return append([]store.RevisionFinanciera{}, m.byExp[expedienteID]...), nil
}

func (m *mockRevisionStore) CountByExpediente(_ context.Context, expedienteID int64) (int, error) {
	return len(m.byExp[expedienteID]), nil
}

type mockUsuarioStore struct {
	nextID int64
	byID   map[int64]*store.Usuario
}

func (m *mockUsuarioStore) seed(u store.Usuario) *store.Usuario {
	m.nextID++
	u.ID = m.nextID
	m.byID[u.ID] = &u
	return &u
}

func (m *mockUsuarioStore) checkRolUnico(u *store.Usuario) error {
	if !u.Rol.UnicoGlobal() || !u.Activo {
		return nil
	}
	for _, other := range m.byID {
		if other.ID != u.ID && other.Rol == u.Rol && other.Activo {
			return fmt.Errorf("%w: ya existe un %s activo (usuario %d, %s)",
				domain.ErrUniquenessConflict, u.Rol, other.ID, other.Nombres)
		}
	}
	return nil
}

func (m *mockUsuarioStore) checkMunicipioLibre(rol domain.Rol, municipioID, excludeID int64) error {
	for _, other := range m.byID {
		if other.ID != excludeID && other.Activo && other.Rol == rol && containsID(other.MunicipioIDs, municipioID) {
			return fmt.Errorf("%w: municipio %d ya tiene %s activo (usuario %d)",
				domain.ErrUniquenessConflict, municipioID, rol, other.ID)
		}
	}
	return nil
}

func (m *mockUsuarioStore) checkAsignaciones(rol domain.Rol, u *store.Usuario) error {
	for _, mid := range u.MunicipioIDs {
		if err := m.checkMunicipioLibre(rol, mid, u.ID); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockUsuarioStore) Create(_ context.Context, u *store.Usuario) error {
	if err := m.checkRolUnico(u); err != nil {
		return err
	}
	m.nextID++
	u.ID = m.nextID
	u.CreadoEn = time.Now()
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *mockUsuarioStore) GetByID(_ context.Context, id int64) (*store.Usuario, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	cp.MunicipioIDs = append([]int64{}, u.MunicipioIDs...)
	return &cp, nil
}

func (m *mockUsuarioStore) List(_ context.Context) ([]store.Usuario, error) {
	out := []store.Usuario{}
	for _, u := range m.byID {
		out = append(out, *u)
	}
	return out, nil
}

func (m *mockUsuarioStore) Update(_ context.Context, u *store.Usuario) error {
	prev, ok := m.byID[u.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if prev.Rol != u.Rol {
		if prev.Rol.RequiereMunicipios() && !u.Rol.RequiereMunicipios() && len(prev.MunicipioIDs) > 0 {
			return domain.ErrRoleChangeBlocked
		}
		if prev.Activo {
			if err := m.checkRolUnico(u); err != nil {
				return err
			}
			if u.Rol.RequiereMunicipios() {
				if err := m.checkAsignaciones(u.Rol, prev); err != nil {
					return err
				}
			}
		}
	}
	cp := *u
	cp.MunicipioIDs = append([]int64{}, prev.MunicipioIDs...)
	m.byID[u.ID] = &cp
	return nil
}

func (m *mockUsuarioStore) SetActivo(_ context.Context, id int64, activo bool) error {
	u, ok := m.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	if activo {
		check := *u
		check.Activo = true
		if err := m.checkRolUnico(&check); err != nil {
			return err
		}
		if u.Rol.RequiereMunicipios() {
			if err := m.checkAsignaciones(u.Rol, u); err != nil {
				return err
			}
		}
	}
	u.Activo = activo
	return nil
}

func (m *mockUsuarioStore) AssignMunicipio(_ context.Context, usuarioID, municipioID int64) error {
	u, ok := m.byID[usuarioID]
	if !ok {
		return domain.ErrNotFound
	}
	if !u.Rol.RequiereMunicipios() {
		return fmt.Errorf("%w: rol %s does not take municipio assignments", domain.ErrPermissionDenied, u.Rol)
	}
	if u.Activo {
		if err := m.checkMunicipioLibre(u.Rol, municipioID, usuarioID); err != nil {
			return err
		}
	}
	if !containsID(u.MunicipioIDs, municipioID) {
		u.MunicipioIDs = append(u.MunicipioIDs, municipioID)
	}
	return nil
}

func (m *mockUsuarioStore) DeactivateMunicipio(_ context.Context, usuarioID, municipioID int64) error {
	u, ok := m.byID[usuarioID]
	if !ok {
		return domain.ErrNotFound
	}
	kept := u.MunicipioIDs[:0]
	for _, id := range u.MunicipioIDs {
		if id != municipioID {
			kept = append(kept, id)
		}
	}
	u.MunicipioIDs = kept
	return nil
}

type mockMunicipioStore struct {
	nextID int64
	byID   map[int64]*store.Municipio
}

func (m *mockMunicipioStore) Create(_ context.Context, mu *store.Municipio) error {
	m.nextID++
	mu.ID = m.nextID
	cp := *mu
	m.byID[mu.ID] = &cp
	return nil
}

func (m *mockMunicipioStore) Upsert(ctx context.Context, mu *store.Municipio) error {
	for _, other := range m.byID {
		if other.Nombre == mu.Nombre && other.Departamento == mu.Departamento {
			mu.ID = other.ID
			*other = *mu
			return nil
		}
	}
	return m.Create(ctx, mu)
}

func (m *mockMunicipioStore) GetByID(_ context.Context, id int64) (*store.Municipio, error) {
	mu, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *mu
	return &cp, nil
}

func (m *mockMunicipioStore) List(_ context.Context, soloActivos bool) ([]store.Municipio, error) {
	out := []store.Municipio{}
	for _, mu := range m.byID {
		if soloActivos && !mu.Activo {
			continue
		}
		out = append(out, *mu)
	}
	return out, nil
}

func (m *mockMunicipioStore) Update(_ context.Context, mu *store.Municipio) error {
	if _, ok := m.byID[mu.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *mu
	m.byID[mu.ID] = &cp
	return nil
}

type mockGuiaStore struct {
	nextID int64
	guias  []*store.Guia
}

func (m *mockGuiaStore) Create(_ context.Context, g *store.Guia) error {
	var versiones []int
	for _, other := range m.guias {
		if other.Categoria == g.Categoria {
			versiones = append(versiones, other.Version)
		}
	}
	if !domain.CanAddVersion(len(versiones)) {
		return fmt.Errorf("%w: categoria %s already has %d versiones",
			domain.ErrVersionCapExceeded, g.Categoria, len(versiones))
	}
	for _, other := range m.guias {
		if other.Categoria == g.Categoria {
			other.Activa = false
		}
	}
	m.nextID++
	g.ID = m.nextID
	g.Version = domain.NextVersion(versiones)
	g.Activa = true
	g.PublicadaEn = time.Now()
	cp := *g
	m.guias = append(m.guias, &cp)
	return nil
}

func (m *mockGuiaStore) GetByID(_ context.Context, id int64) (*store.Guia, error) {
	for _, g := range m.guias {
		if g.ID == id {
			cp := *g
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockGuiaStore) ListActivas(_ context.Context, categoria string) ([]store.Guia, error) {
	out := []store.Guia{}
	for _, g := range m.guias {
		if g.Activa && (categoria == "" || g.Categoria == categoria) {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (m *mockGuiaStore) ListByCategoria(_ context.Context, categoria string) ([]store.Guia, error) {
	out := []store.Guia{}
	for _, g := range m.guias {
		if g.Categoria == categoria {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (m *mockGuiaStore) ListCategorias(_ context.Context) ([]store.CategoriaGuia, error) {
	byCat := map[string]*store.CategoriaGuia{}
	for _, g := range m.guias {
		c, ok := byCat[g.Categoria]
		if !ok {
			c = &store.CategoriaGuia{Categoria: g.Categoria}
			byCat[g.Categoria] = c
		}
		c.Versiones++
		if g.Activa {
			v := g.Version
			c.VersionActiva = &v
		}
	}
	out := []store.CategoriaGuia{}
	for _, c := range byCat {
		out = append(out, *c)
	}
	return out, nil
}

func (m *mockGuiaStore) Delete(_ context.Context, id int64) error {
	for i, g := range m.guias {
		if g.ID == id {
			m.guias = append(m.guias[:i], m.guias[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

type mockNotificacionStore struct {
	nextID int64
	byID   map[int64]*store.Notificacion
}

func (m *mockNotificacionStore) Create(_ context.Context, n *store.Notificacion) error {
	m.nextID++
	n.ID = m.nextID
	n.CreadaEn = time.Now()
	cp := *n
	m.byID[n.ID] = &cp
	return nil
}

func (m *mockNotificacionStore) GetByID(_ context.Context, id int64) (*store.Notificacion, error) {
	n, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *n
	return &cp, nil
}

func (m *mockNotificacionStore) List(_ context.Context, estado string, _ int) ([]store.Notificacion, error) {
	out := []store.Notificacion{}
	for _, n := range m.byID {
		if estado == "" || n.Estado == estado {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (m *mockNotificacionStore) MarkResultado(_ context.Context, id int64, estado string, ultimoError *string) error {
	n, ok := m.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	n.Estado = estado
	n.UltimoError = ultimoError
	if estado == store.NotificacionEnviada {
		now := time.Now()
		n.EnviadaEn = &now
	}
	return nil
}

type mockBitacoraStore struct {
	nextID  int64
	entries []store.EntradaBitacora
}

func (m *mockBitacoraStore) Append(_ context.Context, e *store.EntradaBitacora) error {
	m.nextID++
	e.ID = m.nextID
	e.FechaHora = time.Now()
	m.entries = append(m.entries, *e)
	return nil
}

func (m *mockBitacoraStore) List(_ context.Context, f store.BitacoraFilter) ([]store.EntradaBitacora, error) {
	out := []store.EntradaBitacora{}
	for _, e := range m.entries {
		if f.Entidad != "" && e.Entidad != f.Entidad {
			continue
		}
		if f.EntidadID != 0 && e.EntidadID != f.EntidadID {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// mockFileStore keeps blobs in memory and records removals so tests
// can check compensation and delete ordering.
type mockFileStore struct {
	nextRef int
	blobs   map[string]string
	removed []string
}

func newMockFileStore() *mockFileStore {
	return &mockFileStore{blobs: map[string]string{}}
}

func (m *mockFileStore) Save(r io.Reader, _ string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.nextRef++
	ref := fmt.Sprintf("blob-%d", m.nextRef)
	m.blobs[ref] = string(data)
	return ref, nil
}

func (m *mockFileStore) Open(ref string) (io.ReadCloser, error) {
	data, ok := m.blobs[ref]
	if !ok {
		return nil, errors.New("no such blob")
	}
	return io.NopCloser(strings.NewReader(data)), nil
}

func (m *mockFileStore) Remove(ref string) error {
	delete(m.blobs, ref)
	m.removed = append(m.removed, ref)
	return nil
}

type mockMailer struct {
	sendErr error
	sent    []string
}

func (m *mockMailer) Send(to, subject, _ string) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, to+": "+subject)
	return nil
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// testEnv wires an application onto the in-memory stores with a known
// set of users:
//
//	1 admin, 2 director, 3 jefe financiero,
//	4 tecnico (municipio 10), 5 tecnico (municipio 11, no assignments),
//	6 municipal (municipio 10), 7 tecnico deactivated.
type testEnv struct {
	app            *application
	expedientes    *mockExpedienteStore
	revisiones     *mockRevisionStore
	usuarios       *mockUsuarioStore
	municipios     *mockMunicipioStore
	guias          *mockGuiaStore
	notificaciones *mockNotificacionStore
	bitacora       *mockBitacoraStore
	files          *mockFileStore
	mailer         *mockMailer
}

func newTestEnv() *testEnv {
	env := &testEnv{
		expedientes:    newMockExpedienteStore(),
		usuarios:       &mockUsuarioStore{byID: map[int64]*store.Usuario{}},
		municipios:     &mockMunicipioStore{byID: map[int64]*store.Municipio{}},
		guias:          &mockGuiaStore{},
		notificaciones: &mockNotificacionStore{byID: map[int64]*store.Notificacion{}},
		bitacora:       &mockBitacoraStore{},
		files:          newMockFileStore(),
		mailer:         &mockMailer{},
	}
	env.revisiones = &mockRevisionStore{
		expedientes: env.expedientes,
		byExp:       map[int64][]store.RevisionFinanciera{},
	}

	env.usuarios.seed(store.Usuario{Nombres: "Ana", Apellidos: "Paz", Correo: "ana@sigex.gob", Rol: domain.RolAdmin, Activo: true})
	env.usuarios.seed(store.Usuario{Nombres: "Luis", Apellidos: "Soto", Correo: "luis@sigex.gob", Rol: domain.RolDirector, Activo: true})
	env.usuarios.seed(store.Usuario{Nombres: "Rosa", Apellidos: "Lima", Correo: "rosa@sigex.gob", Rol: domain.RolJefeFinanciero, Activo: true})
	env.usuarios.seed(store.Usuario{Nombres: "Pedro", Apellidos: "Gil", Correo: "pedro@sigex.gob", Rol: domain.RolTecnico, Activo: true, MunicipioIDs: []int64{10}})
	env.usuarios.seed(store.Usuario{Nombres: "Marta", Apellidos: "Cruz", Correo: "marta@sigex.gob", Rol: domain.RolTecnico, Activo: true})
	env.usuarios.seed(store.Usuario{Nombres: "Julia", Apellidos: "Vega", Correo: "julia@sigex.gob", Rol: domain.RolMunicipal, Activo: true, MunicipioIDs: []int64{10}})
	env.usuarios.seed(store.Usuario{Nombres: "Hugo", Apellidos: "Mena", Correo: "hugo@sigex.gob", Rol: domain.RolTecnico, Activo: false, MunicipioIDs: []int64{10}})

	env.app = &application{
		config: config{addr: ":0", uploadsDir: "/tmp"},
		store: store.Storage{
			Expedientes:    env.expedientes,
			Revisiones:     env.revisiones,
			Usuarios:       env.usuarios,
			Municipios:     env.municipios,
			Guias:          env.guias,
			Notificaciones: env.notificaciones,
			Bitacora:       env.bitacora,
			Reportes:       nil,
		},
		files:  env.files,
		mailer: env.mailer,
		logger: logger.New(logger.LevelError),
	}
	return env
}

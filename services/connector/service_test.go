package connector

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"poitiers-connector/lib/scrapers/poitiers"
	"poitiers-connector/lib/telemetry"

	"github.com/stretchr/testify/require"
)

type memorySaver struct {
	files []poitiers.File
	opts  SaveOptions
	calls int
}

func (s *memorySaver) Save(ctx context.Context, files []poitiers.File, opts SaveOptions) error {
	s.files = files
	s.opts = opts
	s.calls++
	return nil
}

// fakePortal mimics the pages of the customer portal that one sync touches.
func fakePortal(t *testing.T, pageFetches *atomic.Int64) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/identification/check", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.PostFormValue("_password") != "s3cret" {
			fmt.Fprint(w, `<html><body>Les identifiants sont incorrects, merci de les saisir à nouveau</body></html>`)
			return
		}
		fmt.Fprint(w, `<html><body><a id="modal-deconnexion" href="/modal-deconnexion">Me déconnecter</a></body></html>`)
	})

	mux.HandleFunc("/cotisations", func(w http.ResponseWriter, r *http.Request) {
		pageFetches.Add(1)
		fmt.Fprint(w, `<html><body><div id="avis-echeance">
			<div class="row-grey">
				<span class="color-primary">29/08/2021</span>
				<div class="row-grey-button"><a href="/get-document/abcdef12345"></a></div>
			</div>
		</div></body></html>`)
	})

	mux.HandleFunc("/contrats", func(w http.ResponseWriter, r *http.Request) {
		pageFetches.Add(1)
		fmt.Fprint(w, `<html><body>
			<div data-contract="vehicle">
				<span class="sr-only">Contrat  automobile</span>
				<a class="contract-detail-load" data-contract-detail="/contrats/vehicule-1">Détail</a>
			</div>
			<div data-contract="house">
				<span class="sr-only">Multirisque habitation</span>
				<a class="contract-detail-load" data-contract-detail="/contrats/habitation-2">Détail</a>
			</div>
		</body></html>`)
	})

	mux.HandleFunc("/contrats/vehicule-1", func(w http.ResponseWriter, r *http.Request) {
		pageFetches.Add(1)
		fmt.Fprint(w, `<html><body><ul>
			<li><a href="/get-document/cg-auto">Conditions générales</a></li>
		</ul></body></html>`)
	})

	mux.HandleFunc("/contrats/habitation-2", func(w http.ResponseWriter, r *http.Request) {
		pageFetches.Add(1)
		fmt.Fprint(w, `<html><body><ul>
			<li><a href="/get-document/attestation">Attestation habitation</a></li>
		</ul></body></html>`)
	})

	return mux
}

func setup(t *testing.T) (Service, *memorySaver, string, *atomic.Int64) {
	cleanup := telemetry.SetupForTesting(t, "test:services/connector")
	t.Cleanup(cleanup)

	var pageFetches atomic.Int64
	server := httptest.NewServer(fakePortal(t, &pageFetches))
	t.Cleanup(server.Close)

	client, err := poitiers.NewClient(context.Background(), poitiers.ClientOptions{BaseUrl: server.URL})
	require.NoError(t, err)

	saver := &memorySaver{}
	return NewService(client, saver), saver, server.URL, &pageFetches
}

func TestSync(t *testing.T) {
	service, saver, baseUrl, _ := setup(t)

	files, err := service.Sync(context.Background(), Credentials{
		Login:    "societaire-42",
		Password: "s3cret",
	})
	require.NoError(t, err)
	require.Equal(t, 1, saver.calls)
	require.Equal(t, files, saver.files)

	require.Equal(t, "societaire-42", saver.opts.SourceAccountIdentifier)
	require.Equal(t, []string{"filename", "subPath"}, saver.opts.DedupKeys)

	require.Len(t, files, 3)

	require.Equal(t, "2021-08-29_avis_d_échéance.pdf", files[0].Filename)
	require.Equal(t, baseUrl+"/get-document/abcdef12345", files[0].FileUrl)
	require.Equal(t, "factures", files[0].SubPath)

	require.Equal(t, "Conditions_générales.pdf", files[1].Filename)
	require.Equal(t, "véhicule", files[1].SubPath)

	require.Equal(t, "Attestation_habitation.pdf", files[2].Filename)
	require.Equal(t, "habitation", files[2].SubPath)
}

func TestSyncAbortsOnAuthenticationFailure(t *testing.T) {
	service, saver, _, pageFetches := setup(t)

	_, err := service.Sync(context.Background(), Credentials{
		Login:    "societaire-42",
		Password: "wrong",
	})
	require.ErrorIs(t, err, poitiers.ErrBadCredentials)

	// a failed login fetches nothing and saves nothing
	require.Equal(t, int64(0), pageFetches.Load())
	require.Equal(t, 0, saver.calls)
}

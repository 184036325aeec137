package i18n

// translations maps a base language to English message -> translated message.
// English is the key language and needs no entries.
var translations = map[string]map[string]string{
	"fr": {
		// auth
		"authentication required":                           "authentification requise",
		"invalid email or password":                         "e-mail ou mot de passe invalide",
		"too many failed sign-in attempts, try again later": "trop de tentatives de connexion échouées, réessayez plus tard",
		"email and password are required":                   "l'e-mail et le mot de passe sont requis",
		"a valid email is required":                         "un e-mail valide est requis",
		"a user with this email already exists":             "un utilisateur avec cet e-mail existe déjà",
		"invalid current password":                          "mot de passe actuel invalide",
		"password must be at least 8 characters":            "le mot de passe doit contenir au moins 8 caractères",
		"invalid or expired OAuth state":                    "état OAuth invalide ou expiré",
		"Google sign-in is not configured":                  "la connexion Google n'est pas configurée",
		"Google account email is not verified":              "l'e-mail du compte Google n'est pas vérifié",
		"name is required":                                  "le nom est requis",

		// lookups
		"user not found":         "utilisateur introuvable",
		"organization not found": "organisation introuvable",
		"project not found":      "projet introuvable",
		"sprint not found":       "sprint introuvable",
		"task not found":         "tâche introuvable",
		"label not found":        "étiquette introuvable",
		"comment not found":      "commentaire introuvable",
		"attachment not found":   "pièce jointe introuvable",
		"notification not found": "notification introuvable",
		"membership not found":   "adhésion introuvable",
		"not found":              "introuvable",

		// validation and conflicts
		"name and slug are required":                          "le nom et le slug sont requis",
		"name, key and organizationId are required":           "le nom, la clé et organizationId sont requis",
		"name, startDate, endDate and projectId are required": "le nom, startDate, endDate et projectId sont requis",
		"title and projectId are required":                    "le titre et projectId sont requis",
		"taskId and content are required":                     "taskId et le contenu sont requis",
		"organization slug already exists":                    "ce slug d'organisation existe déjà",
		"project key already exists in this organization":     "cette clé de projet existe déjà dans l'organisation",
		"project already has an active sprint":                "le projet a déjà un sprint actif",
		"user is already a member of this organization":       "l'utilisateur est déjà membre de cette organisation",
		"cannot remove the last owner of an organization":     "impossible de retirer le dernier propriétaire d'une organisation",
		"label already attached to task":                      "étiquette déjà attachée à la tâche",
		"invalid request body":                                "corps de requête invalide",
		"file is required":                                    "un fichier est requis",
		"file is too large":                                   "fichier trop volumineux",
		"file type is not allowed":                            "type de fichier non autorisé",
		"assignee is not a member of this organization":       "la personne assignée n'est pas membre de cette organisation",
		"sprint not found in this project":                    "sprint introuvable dans ce projet",
		"parent task not found in this project":               "tâche parente introuvable dans ce projet",
		"parent task would create a cycle":                    "la tâche parente créerait un cycle",
		"a task cannot be its own parent":                     "une tâche ne peut pas être sa propre parente",
		"label belongs to another project":                    "l'étiquette appartient à un autre projet",
		"email is required":                                   "l'e-mail est requis",

		// permissions
		"you are not a member of this organization":                                "vous n'êtes pas membre de cette organisation",
		"only owners and admins can add members; only owners can add owners":       "seuls les propriétaires et administrateurs peuvent ajouter des membres ; seuls les propriétaires peuvent ajouter des propriétaires",
		"only owners and admins can remove members; only owners can remove owners": "seuls les propriétaires et administrateurs peuvent retirer des membres ; seuls les propriétaires peuvent retirer des propriétaires",
		"only owners and admins can delete projects":                               "seuls les propriétaires et administrateurs peuvent supprimer des projets",
		"you can only delete your own comments":                                    "vous ne pouvez supprimer que vos propres commentaires",
		"you do not have permission to delete this label":                          "vous n'avez pas la permission de supprimer cette étiquette",

		// generic
		"internal server error": "erreur interne du serveur",
		"route not found":       "route introuvable",
		"method not allowed":    "méthode non autorisée",
		"unsupported locale":    "langue non prise en charge",
	},
}

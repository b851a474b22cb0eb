// Package testkeys provides armored OpenPGP public keys for tests.
package testkeys

// General is an ed25519/cv25519 public key for general@crew.ddmail.se
const General = `-----BEGIN PGP PUBLIC KEY BLOCK-----

mDMEZdUJSxYJKwYBBAHaRw8BAQdAQh/tvYt/2A6Fo/TMuWsWb23V1HLoEekHmnzd
h4QgEy60FmdlbmVyYWxAY3Jldy5kZG1haWwuc2WIkwQTFgoAOxYhBL4dF5XUzKUM
+RzHcJmypiemZ3O6BQJl1QlLAhsDBQsJCAcCAiICBhUKCQgLAgQWAgMBAh4HAheA
AAoJEJmypiemZ3O6KJ4BAIUt8x3tWg/h+MhxyASMA6F2D0b6mTEBRudOKhI52Q3q
AQDozvDYivlMAWr+pDmT4FOhfesvSfJrLOYJt176wIqMD7g4BGXVCUsSCisGAQQB
l1UBBQEBB0DSgnpR6/JCkNXsR1EJureDB5Be1foI5A/xvJ7EzjA+LwMBCAeIeAQY
FgoAIBYhBL4dF5XUzKUM+RzHcJmypiemZ3O6BQJl1QlLAhsMAAoJEJmypiemZ3O6
kR0BAPBdn3BLdZMPAlkS9PUZYScNyZ6vsUQZCLQHnGVGkPFIAP0X0niayPcSAOti
vTF7UzVX18zXr0zUFWU2JBTyct88AA==
=kpN6
-----END PGP PUBLIC KEY BLOCK-----`

// GeneralFingerprint is the primary key fingerprint of General
const GeneralFingerprint = "BE1D1795D4CCA50CF91CC77099B2A627A66773BA"

// Second is an ed25519 public key for second@example.com
const Second = `-----BEGIN PGP PUBLIC KEY BLOCK-----

mDMEas8vIhYJKwYBBAHaRw8BAQdA8qijnq05tJpPmjOqe33lUzBd77GfMA+AtI6N
YHpv7ii0EnNlY29uZEBleGFtcGxlLmNvbYiQBBMWCAA4FiEEbZAz74x00Pwb6PV6
rSNw5Eqt4vYFAmrPLyICGwEFCwkIBwIGFQoJCAsCBBYCAwECHgECF4AACgkQrSNw
5Eqt4vbGbgEAhTTB7t4JVDs4bPlACWQh2rvGsunzS16LF39OexGP/yoA/irC/cf2
Od3i2Fc1a4HS049xjMErA0ZOghTHV37N0jgK
=ZmnO
-----END PGP PUBLIC KEY BLOCK-----`

// SecondFingerprint is the primary key fingerprint of Second
const SecondFingerprint = "6D9033EF8C74D0FC1BE8F57AAD2370E44AADE2F6"

// Both holds General and Second in a single armored block
const Both = `-----BEGIN PGP PUBLIC KEY BLOCK-----

mDMEZdUJSxYJKwYBBAHaRw8BAQdAQh/tvYt/2A6Fo/TMuWsWb23V1HLoEekHmnzd
h4QgEy60FmdlbmVyYWxAY3Jldy5kZG1haWwuc2WIkwQTFgoAOxYhBL4dF5XUzKUM
+RzHcJmypiemZ3O6BQJl1QlLAhsDBQsJCAcCAiICBhUKCQgLAgQWAgMBAh4HAheA
AAoJEJmypiemZ3O6KJ4BAIUt8x3tWg/h+MhxyASMA6F2D0b6mTEBRudOKhI52Q3q
AQDozvDYivlMAWr+pDmT4FOhfesvSfJrLOYJt176wIqMD7g4BGXVCUsSCisGAQQB
l1UBBQEBB0DSgnpR6/JCkNXsR1EJureDB5Be1foI5A/xvJ7EzjA+LwMBCAeIeAQY
FgoAIBYhBL4dF5XUzKUM+RzHcJmypiemZ3O6BQJl1QlLAhsMAAoJEJmypiemZ3O6
kR0BAPBdn3BLdZMPAlkS9PUZYScNyZ6vsUQZCLQHnGVGkPFIAP0X0niayPcSAOti
vTF7UzVX18zXr0zUFWU2JBTyct88AJgzBGrPLyIWCSsGAQQB2kcPAQEHQPKoo56t
ObSaT5ozqnt95VMwXe+xnzAPgLSOjWB6b+4otBJzZWNvbmRAZXhhbXBsZS5jb22I
kAQTFggAOBYhBG2QM++MdND8G+j1eq0jcORKreL2BQJqzy8iAhsBBQsJCAcCBhUK
CQgLAgQWAgMBAh4BAheAAAoJEK0jcORKreL2xm4BAIU0we7eCVQ7OGz5QAlkIdq7
xrLp80teixd/TnsRj/8qAP4qwv3H9jnd4thXNWuB0tOPcYzBKwNGToIUx1d+zdI4
Cg==
=Jxhk
-----END PGP PUBLIC KEY BLOCK-----`
